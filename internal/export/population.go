package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"bcellsim/internal/model"
)

// WritePopulation writes the per-generation population records as CSV.
// The child-count histogram is exact per fan-out 0..10.
func WritePopulation(w io.Writer, records []model.PopulationRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"time",
		"location",
		"clone_id",
		"population",
		"reproducing_cells",
		"mean_affinity",
	}
	for i := 0; i <= model.MaxRealizedChildren; i++ {
		header = append(header, fmt.Sprintf("cells_with_%d_children", i))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write population header: %w", err)
	}

	for _, r := range records {
		row := []string{
			fmt.Sprint(r.Time),
			r.Location,
			fmt.Sprint(r.CloneID),
			fmt.Sprint(r.Population),
			fmt.Sprint(r.ReproducingCells),
			fmt.Sprintf("%g", r.MeanAffinity),
		}
		for _, n := range r.ChildCounts {
			row = append(row, fmt.Sprint(n))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write population row t=%d: %w", r.Time, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
