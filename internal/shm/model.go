// Package shm holds the somatic-hypermutation model: per-locus 5-mer
// mutability and substitution tables. Tables are immutable after load
// and shared read-only across runs.
package shm

import (
	"errors"
	"fmt"
)

// Locus distinguishes heavy- from light-chain table sets. The two chain
// kinds share all logic and differ only in which tables and per-site
// rate apply.
type Locus int

const (
	Heavy Locus = iota
	Light
)

func (l Locus) String() string {
	if l == Heavy {
		return "heavy"
	}
	return "light"
}

// Tag returns the AIRR locus tag.
func (l Locus) Tag() string {
	if l == Heavy {
		return "IGH"
	}
	return "IGL"
}

// ErrUnknownContext is returned when a 5-mer context has no table entry.
// This indicates a configuration/data mismatch and must abort the run;
// there is no sensible numeric fallback.
var ErrUnknownContext = errors.New("5-mer context not found in mutation tables")

// Model is a pair of mutability and substitution tables per locus.
// A uniform model answers every context without a table.
type Model struct {
	uniform      bool
	mutability   [2]map[string]float64
	substitution [2]map[string][4]float64
}

// Uniform returns a model in which every context is equally mutable and
// substitutes uniformly into the three other bases.
func Uniform() *Model {
	return &Model{uniform: true}
}

// Mutability returns the relative mutation weight of the 5-mer centered
// on a position.
func (m *Model) Mutability(locus Locus, kmer string) (float64, error) {
	if m.uniform {
		return 1, nil
	}
	w, ok := m.mutability[locus][kmer]
	if !ok {
		return 0, fmt.Errorf("%w: mutability of %q (%s)", ErrUnknownContext, kmer, locus)
	}
	return w, nil
}

// Substitution returns the replacement-base distribution (A,C,G,T order)
// for the 5-mer centered on a position.
func (m *Model) Substitution(locus Locus, kmer string) ([4]float64, error) {
	if m.uniform {
		return uniformSubstitution(kmer), nil
	}
	p, ok := m.substitution[locus][kmer]
	if !ok {
		return [4]float64{}, fmt.Errorf("%w: substitution of %q (%s)", ErrUnknownContext, kmer, locus)
	}
	return p, nil
}

func uniformSubstitution(kmer string) [4]float64 {
	var p [4]float64
	center := byte(0)
	if len(kmer) == 5 {
		center = kmer[2]
	}
	for i, base := range []byte{'A', 'C', 'G', 'T'} {
		if base == center {
			continue
		}
		p[i] = 1.0 / 3.0
	}
	return p
}
