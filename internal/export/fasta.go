package export

import (
	"fmt"
	"io"

	"bcellsim/internal/model"
)

// WriteFasta writes one FASTA entry per sequence record. The header
// carries the cell annotations as pipe-separated key=value fields after
// the record ID.
func WriteFasta(w io.Writer, records []model.SequenceRecord) error {
	for _, r := range records {
		_, err := fmt.Fprintf(w, ">%s|locus=%s|sample_time=%d|location=%s|celltype=%s\n%s\n",
			r.SequenceID, r.Locus, r.SampleTime, r.Location, r.CellType, r.Sequence)
		if err != nil {
			return fmt.Errorf("write fasta entry %s: %w", r.SequenceID, err)
		}
	}
	return nil
}
