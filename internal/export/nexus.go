package export

import (
	"fmt"
	"io"

	"bcellsim/internal/model"
)

// WriteNexus groups the collected Newick strings into a single NEXUS
// TREES block. Each tree is named <kind>_<clone>.
func WriteNexus(w io.Writer, trees []model.TreeRecord) error {
	if _, err := fmt.Fprint(w, "#NEXUS\nBEGIN TREES;\n"); err != nil {
		return fmt.Errorf("write nexus preamble: %w", err)
	}
	for _, t := range trees {
		if _, err := fmt.Fprintf(w, "\tTree %s_%d = %s\n", t.Name, t.CloneID, t.Newick); err != nil {
			return fmt.Errorf("write tree %s_%d: %w", t.Name, t.CloneID, err)
		}
	}
	if _, err := fmt.Fprint(w, "END;\n"); err != nil {
		return fmt.Errorf("write nexus end: %w", err)
	}
	return nil
}
