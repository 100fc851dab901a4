// Package target models the fitness landscape a lineage climbs toward: a
// germline-derived amino-acid sequence with one selection multiplier per
// position. The partition into CDR, framework and conserved positions is
// fixed at construction; only Mutate may later redefine positions.
package target

import (
	"errors"
	"fmt"
	"math"

	"bcellsim/internal/dna"
	"bcellsim/internal/randx"
)

// Dist selects a multiplier distribution family.
type Dist string

const (
	DistExponential   Dist = "exponential"
	DistConstant      Dist = "constant"
	DistConstantNoise Dist = "constant-noise"
)

// Params configures multiplier generation.
type Params struct {
	// Multiplier is the fixed elevated value assigned to target-mutated
	// positions, and the reference for the exponential mean.
	Multiplier float64
	CDRDist    Dist
	CDRVar     float64
	FWRDist    Dist
	FWRVar     float64
}

// Canonical region offsets in the numbered amino-acid view. CDR3 extends
// from cdr3Start for the chain's CDR3 length.
const (
	cdr1Start = 27
	cdr1End   = 39
	cdr2Start = 56
	cdr2End   = 66
	cdr3Start = 105
)

// conservedOffsets are the invariant anchor positions (the cysteine and
// tryptophan anchors of the numbering scheme). They receive a fixed
// elevated multiplier and are never redefined by Mutate.
var conservedOffsets = []int{22, 40, 88, 103, 117}

// Chain is the per-chain half of a target pair.
type Chain struct {
	GappedSeq   string
	AminoAcid   string
	CDR3Length  int
	multipliers []float64
	cdr         map[int]bool
	conserved   map[int]bool
	mutated     []int
	params      Params
}

// NewChain fixes the position partition and draws one multiplier per
// amino-acid position from the configured distributions. Conserved
// anchors get twice the base multiplier.
func NewChain(gappedNT string, cdr3Len int, params Params, rng *randx.Rand) (*Chain, error) {
	if params.Multiplier <= 1 {
		return nil, fmt.Errorf("target multiplier must be > 1, got %v", params.Multiplier)
	}
	t := &Chain{
		GappedSeq:  gappedNT,
		AminoAcid:  dna.Translate(gappedNT),
		CDR3Length: cdr3Len,
		cdr:        make(map[int]bool),
		conserved:  make(map[int]bool),
		params:     params,
	}
	for i := cdr1Start; i < cdr1End; i++ {
		t.cdr[i] = true
	}
	for i := cdr2Start; i < cdr2End; i++ {
		t.cdr[i] = true
	}
	for i := cdr3Start; i < cdr3Start+cdr3Len; i++ {
		t.cdr[i] = true
	}
	for _, i := range conservedOffsets {
		if i < len(t.AminoAcid) {
			t.conserved[i] = true
		}
	}

	n := len(t.AminoAcid)
	t.multipliers = make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case t.conserved[i]:
			t.multipliers[i] = params.Multiplier * 2
		case t.cdr[i]:
			t.multipliers[i] = drawMultiplier(params.CDRDist, params.CDRVar, params.Multiplier, rng)
		default:
			t.multipliers[i] = drawMultiplier(params.FWRDist, params.FWRVar, params.Multiplier, rng)
		}
	}
	return t, nil
}

// drawMultiplier draws one per-position multiplier. The exponential mean
// is chosen so that a fraction v of positions falls below the reference
// multiplier m.
func drawMultiplier(dist Dist, v, m float64, rng *randx.Rand) float64 {
	switch dist {
	case DistExponential:
		mean := -(m - 1) / logOneMinus(v)
		return 1 + rng.Exponential(mean)
	case DistConstant:
		return v
	case DistConstantNoise:
		return v + rng.Normal(0, 0.1)
	default:
		return m
	}
}

// IsCDR reports whether an amino-acid position is in a CDR region.
func (t *Chain) IsCDR(pos int) bool {
	return t.cdr[pos]
}

// CDRSize is the number of positions in the CDR partition, including any
// CDR3 tail beyond the sequence end (the denominator the similarity
// fractions are defined over).
func (t *Chain) CDRSize() int {
	return (cdr1End - cdr1Start) + (cdr2End - cdr2Start) + t.CDR3Length
}

// Multiplier returns the selection multiplier of a position.
func (t *Chain) Multiplier(pos int) float64 {
	return t.multipliers[pos]
}

// MaxAffinity is the product of all position multipliers — the score of
// a sequence matching the target everywhere.
func (t *Chain) MaxAffinity() float64 {
	p := 1.0
	for _, m := range t.multipliers {
		p *= m
	}
	return p
}

// MutatedPositions lists the amino-acid positions redefined by Mutate.
func (t *Chain) MutatedPositions() []int {
	out := make([]int, len(t.mutated))
	copy(out, t.mutated)
	return out
}

// ErrNoEligiblePositions is returned when Mutate is asked for more
// germline-divergent positions than the CDR partition can provide.
var ErrNoEligiblePositions = errors.New("not enough eligible target positions")

// Mutate introduces n germline-divergent positions. Eligible positions
// are non-conserved CDR positions whose amino acid is defined. Each is
// redefined by a single-nucleotide codon change that changes the amino
// acid without creating a stop, and its multiplier is raised to the
// fixed elevated value. A no-op when n is zero or the sequence is empty.
func (t *Chain) Mutate(n int, rng *randx.Rand) error {
	if n <= 0 || len(t.AminoAcid) == 0 {
		return nil
	}
	eligible := make([]int, 0, len(t.cdr))
	for i := 0; i < len(t.AminoAcid); i++ {
		aa := t.AminoAcid[i]
		if !t.cdr[i] || t.conserved[i] || aa == dna.UnknownMarker || aa == dna.StopMarker {
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) < n {
		return fmt.Errorf("%w: want %d, have %d", ErrNoEligiblePositions, n, len(eligible))
	}

	picked := rng.SampleWithoutReplacement(len(eligible), n)
	nt := []byte(t.GappedSeq)
	aa := []byte(t.AminoAcid)
	for _, pi := range picked {
		pos := eligible[pi]
		codon, newAA, err := replacementCodon(string(nt[pos*3:pos*3+3]), aa[pos], rng)
		if err != nil {
			return err
		}
		copy(nt[pos*3:pos*3+3], codon)
		aa[pos] = newAA
		t.multipliers[pos] = t.params.Multiplier
		t.mutated = append(t.mutated, pos)
	}
	t.GappedSeq = string(nt)
	t.AminoAcid = string(aa)
	return nil
}

// replacementCodon enumerates all single-nucleotide codon changes that
// alter the amino acid without producing a stop, and draws one.
func replacementCodon(codon string, currAA byte, rng *randx.Rand) (string, byte, error) {
	var candidates []string
	for i := 0; i < 3; i++ {
		for _, repl := range []byte(dna.Bases) {
			if repl == codon[i] {
				continue
			}
			next := codon[:i] + string(repl) + codon[i+1:]
			nextAA := dna.TranslateCodon(next)
			if nextAA == currAA || nextAA == dna.StopMarker {
				continue
			}
			candidates = append(candidates, next)
		}
	}
	if len(candidates) == 0 {
		return "", 0, fmt.Errorf("no viable replacement codon for %q", codon)
	}
	next := candidates[rng.Intn(len(candidates))]
	return next, dna.TranslateCodon(next), nil
}

func logOneMinus(v float64) float64 {
	// v is validated against (0,1) by settings before a run starts.
	return math.Log(1 - v)
}
