package sim

import (
	"bcellsim/internal/lineage"
	"bcellsim/internal/model"
	"bcellsim/internal/settings"
)

// compartment is one named population: the nodes of the current
// generation plus a buffer of nodes migrating in. The buffer merges into
// the population only at the end of a generation, so within-generation
// decisions see a frozen snapshot.
type compartment struct {
	settings    settings.CompartmentSettings
	current     []*lineage.Node
	immigrating []*lineage.Node

	// Per-generation reproduction bookkeeping for the population record.
	realized    []int
	reproducing int
}

func (c *compartment) name() model.CompartmentName {
	return c.settings.Name
}

// absorbImmigrants completes migration: arrivals take on the
// compartment's location tag and mutation rate, join the population, and
// the buffer resets.
func (c *compartment) absorbImmigrants() {
	for _, n := range c.immigrating {
		n.Cell.Location = c.settings.Name
		n.Cell.MutationRate = c.settings.MutationRate
	}
	c.current = append(c.current, c.immigrating...)
	c.immigrating = nil
}

// samplesAt reports whether tips are harvested at the given generation.
func (c *compartment) samplesAt(time int) bool {
	for _, t := range c.settings.SampleTimes {
		if t == time {
			return true
		}
	}
	return false
}

func (c *compartment) meanAffinity() float64 {
	if len(c.current) == 0 {
		return 0
	}
	total := 0.0
	for _, n := range c.current {
		total += n.Cell.Affinity
	}
	return total / float64(len(c.current))
}
