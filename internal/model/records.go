// Package model defines the flat record types exchanged between the
// simulation core, the exporters and the results store.
package model

import "fmt"

// CompartmentName identifies a population compartment.
type CompartmentName string

const (
	GerminalCenter CompartmentName = "germinal_center"
	Other          CompartmentName = "other"
)

// ParseCompartment rejects unrecognized compartment names at
// construction time instead of letting them propagate into a run.
func ParseCompartment(s string) (CompartmentName, error) {
	switch CompartmentName(s) {
	case GerminalCenter, Other:
		return CompartmentName(s), nil
	default:
		return "", fmt.Errorf("unknown compartment name: %q", s)
	}
}

// MaxRealizedChildren caps the number of children one cell can spawn in
// a generation regardless of how many reproductive units it captured.
const MaxRealizedChildren = 10

// SequenceRecord is one chain of one sampled cell, flattened for the
// tabular exporter. Constants carries the externally supplied annotation
// fields of the originating naive chain, unmodified.
type SequenceRecord struct {
	SequenceID        string            `json:"sequence_id"`
	CellID            string            `json:"cell_id"`
	CloneID           int               `json:"clone_id"`
	Sequence          string            `json:"sequence"`
	SequenceAlignment string            `json:"sequence_alignment"`
	SampleTime        int               `json:"sample_time"`
	Locus             string            `json:"locus"`
	Junction          string            `json:"junction"`
	JunctionAA        string            `json:"junction_aa"`
	JunctionLength    int               `json:"junction_length"`
	Location          string            `json:"location"`
	CellType          string            `json:"celltype"`
	Constants         map[string]string `json:"constants,omitempty"`
}

// PopulationRecord summarizes one compartment at one generation.
// ChildCounts[k] is the number of cells that realized exactly k
// children, for k in 0..MaxRealizedChildren.
type PopulationRecord struct {
	Time             int                          `json:"time"`
	Location         string                       `json:"location"`
	CloneID          int                          `json:"clone_id"`
	Population       int                          `json:"population"`
	ReproducingCells int                          `json:"number_of_reproducing_cells"`
	MeanAffinity     float64                      `json:"average_affinity"`
	ChildCounts      [MaxRealizedChildren + 1]int `json:"child_counts"`
}

// Tree names as exported in the NEXUS TREES block.
const (
	TreeFull           = "full_tree"
	TreePruned         = "pruned_tree"
	TreePrunedTime     = "pruned_time_tree"
	TreeSimplified     = "simplified_tree"
	TreeSimplifiedTime = "simplified_time_tree"
)

// TreeRecord is one serialized lineage tree.
type TreeRecord struct {
	Name    string `json:"name"`
	CloneID int    `json:"clone_id"`
	Newick  string `json:"newick"`
}

// RunRecord summarizes one completed run for the results store.
type RunRecord struct {
	RunID           string  `json:"run_id"`
	CloneID         int     `json:"clone_id"`
	Seed            int64   `json:"seed"`
	MaxAffinity     float64 `json:"max_affinity"`
	DegenerateDraws int     `json:"degenerate_draws"`
	SampledCells    int     `json:"sampled_cells"`
}
