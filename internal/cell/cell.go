// Package cell composes one heavy and one light chain into the unit the
// branching process reproduces, migrates and differentiates.
package cell

import (
	"fmt"

	"bcellsim/internal/chain"
	"bcellsim/internal/model"
	"bcellsim/internal/randx"
	"bcellsim/internal/shm"
	"bcellsim/internal/target"
)

// Type is the differentiation state of a cell lineage. The only legal
// transitions are Naive to Memory and Naive to Plasma.
type Type int

const (
	Naive Type = iota
	Memory
	Plasma
)

func (t Type) String() string {
	switch t {
	case Memory:
		return "memory"
	case Plasma:
		return "plasma"
	default:
		return "naive"
	}
}

// Cell owns its two chains exclusively. Chains are never mutated in
// place during reproduction; each child receives independently copied,
// then mutated, chains.
type Cell struct {
	ID           int64
	Heavy        *chain.Chain
	Light        *chain.Chain
	CreatedAt    int
	Alive        bool
	Location     model.CompartmentName
	Type         Type
	MutationRate float64
	Affinity     float64
}

// New wires a freshly built cell. The caller supplies the run-scoped ID.
func New(id int64, heavy, light *chain.Chain, createdAt int, location model.CompartmentName, mutationRate float64) *Cell {
	return &Cell{
		ID:           id,
		Heavy:        heavy,
		Light:        light,
		CreatedAt:    createdAt,
		Alive:        true,
		Location:     location,
		MutationRate: mutationRate,
		Affinity:     1,
	}
}

// Mutate mutates both chains with the cell's current rate scalar and
// returns the per-chain substitution counts.
func (c *Cell) Mutate(rng *randx.Rand, m *shm.Model) (heavy, light int, err error) {
	heavy, err = c.Heavy.Mutate(rng, m, c.MutationRate)
	if err != nil {
		return 0, 0, err
	}
	light, err = c.Light.Mutate(rng, m, c.MutationRate)
	if err != nil {
		return 0, 0, err
	}
	return heavy, light, nil
}

// CalcAffinity scores both chains against the shared target pair.
// Functional failure dominates: the affinity is forced to zero when
// either chain is non-functional.
func (c *Cell) CalcAffinity(t *target.Pair) float64 {
	c.Affinity = c.Heavy.CalcAffinity(t.Heavy) * c.Light.CalcAffinity(t.Light)
	if !c.Heavy.Functional || !c.Light.Functional {
		c.Affinity = 0
	}
	return c.Affinity
}

// Remake clones the cell state for a migration event that relocates a
// lineage without introducing new mutations. The chain objects are
// shared; they only ever change when a child copies them first.
func (c *Cell) Remake(id int64) *Cell {
	dup := *c
	dup.ID = id
	return &dup
}

// Differentiate applies a one-way state transition out of Naive.
func (c *Cell) Differentiate(t Type) error {
	if c.Type != Naive || (t != Memory && t != Plasma) {
		return fmt.Errorf("illegal differentiation %s -> %s", c.Type, t)
	}
	c.Type = t
	return nil
}

// Kill marks the cell as reproductively exhausted. Generations do not
// overlap: a parent dies once its children have been spawned.
func (c *Cell) Kill() {
	c.Alive = false
}
