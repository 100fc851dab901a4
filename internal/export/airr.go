// Package export renders collected run results into their on-disk
// formats: AIRR-style TSV, FASTA, NEXUS tree blocks and the population
// CSV. Writers take the full record set for all runs; record IDs are
// already clone-prefixed by the engine.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"bcellsim/internal/model"
)

// airrBase is the fixed leading column order. Constant annotation
// columns follow, sorted by name, as the union over all records.
var airrBase = []string{
	"sequence_id",
	"sequence",
	"sequence_alignment",
	"sample_time",
	"locus",
	"junction",
	"junction_aa",
	"junction_length",
	"cell_id",
	"location",
	"celltype",
	"clone_id",
}

// WriteAIRR writes the sequence records as a tab-separated table.
func WriteAIRR(w io.Writer, records []model.SequenceRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	extras := constantColumns(records)
	if err := cw.Write(append(append([]string{}, airrBase...), extras...)); err != nil {
		return fmt.Errorf("write airr header: %w", err)
	}

	row := make([]string, 0, len(airrBase)+len(extras))
	for _, r := range records {
		row = row[:0]
		row = append(row,
			r.SequenceID,
			r.Sequence,
			r.SequenceAlignment,
			fmt.Sprint(r.SampleTime),
			r.Locus,
			r.Junction,
			r.JunctionAA,
			fmt.Sprint(r.JunctionLength),
			r.CellID,
			r.Location,
			r.CellType,
			fmt.Sprint(r.CloneID),
		)
		for _, col := range extras {
			row = append(row, r.Constants[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write airr row %s: %w", r.SequenceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func constantColumns(records []model.SequenceRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Constants {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
