// Package chain implements the mutating nucleotide sequence of one
// immunoglobulin chain: a context-dependent 5-mer substitution process
// with an incrementally maintained per-position mutability profile.
package chain

import (
	"fmt"
	"strings"

	"bcellsim/internal/dna"
	"bcellsim/internal/randx"
	"bcellsim/internal/shm"
	"bcellsim/internal/target"
)

// Spec describes a chain at construction. Aligned is the gapped view;
// PerSiteRate is the locus-specific per-site mutation probability.
// Constants are annotation fields carried through to sequence records
// unmodified.
type Spec struct {
	Locus       shm.Locus
	Aligned     string
	CDR3Length  int
	Junction    string
	PerSiteRate float64
	Constants   map[string]string
}

// Chain is one mutating sequence. The mutability vector always has the
// same length as Seq and is kept consistent by windowed recomputation
// after each substitution.
type Chain struct {
	Locus       shm.Locus
	Seq         string
	Gaps        []dna.GapRun
	AminoAcid   string
	Mutability  []float64
	Functional  bool
	CDR3Length  int
	PerSiteRate float64

	// Scoring state written by Affinity.
	Affinity      float64
	Similarity    float64
	CDRSimilarity float64
	FWRSimilarity float64

	Constants map[string]string

	junctionStart int
	junctionLen   int
}

// New builds a chain from its aligned germline view. The junction
// substring must be locatable in the ungapped sequence; absence is a
// construction error rather than a latent export failure.
func New(spec Spec, model *shm.Model) (*Chain, error) {
	seq := dna.RemoveGaps(spec.Aligned)
	if seq == "" {
		return nil, fmt.Errorf("%s chain: empty sequence", spec.Locus)
	}
	c := &Chain{
		Locus:       spec.Locus,
		Seq:         seq,
		Gaps:        dna.GapsFromAligned(spec.Aligned),
		CDR3Length:  spec.CDR3Length,
		PerSiteRate: spec.PerSiteRate,
		Affinity:    1,
		Constants:   spec.Constants,
	}
	c.AminoAcid = dna.Translate(c.GappedSeq())
	c.Functional = !dna.HasStop(c.AminoAcid)
	if spec.Junction != "" {
		start := strings.Index(seq, spec.Junction)
		if start < 0 {
			return nil, fmt.Errorf("%s chain: junction %q not found in sequence", spec.Locus, spec.Junction)
		}
		c.junctionStart = start
		c.junctionLen = len(spec.Junction)
	}
	var err error
	c.Mutability, err = buildMutability(seq, spec.Locus, model)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Copy produces an independent chain a child lineage can mutate without
// affecting the parent. The constants map is shared; it is never written
// after construction.
func (c *Chain) Copy() *Chain {
	dup := *c
	dup.Gaps = dna.CopyGaps(c.Gaps)
	dup.Mutability = make([]float64, len(c.Mutability))
	copy(dup.Mutability, c.Mutability)
	return &dup
}

// GappedSeq returns the alignment-coordinate view of the sequence.
func (c *Chain) GappedSeq() string {
	return dna.ApplyGaps(c.Seq, c.Gaps)
}

// Junction returns the current junction substring. It tracks mutations,
// since it is read from the live sequence.
func (c *Chain) Junction() string {
	return c.Seq[c.junctionStart : c.junctionStart+c.junctionLen]
}

// JunctionAA returns the translated junction.
func (c *Chain) JunctionAA() string {
	return dna.Translate(c.Junction())
}

// JunctionLength returns the junction length in nucleotides.
func (c *Chain) JunctionLength() int {
	return c.junctionLen
}

// Mutate applies a Poisson-distributed number of substitutions with mean
// PerSiteRate * len(Seq) * rate and returns the count applied.
func (c *Chain) Mutate(rng *randx.Rand, model *shm.Model, rate float64) (int, error) {
	n := rng.Poisson(c.PerSiteRate * float64(len(c.Seq)) * rate)
	if n == 0 {
		return 0, nil
	}
	if err := c.MutateN(rng, model, n); err != nil {
		return 0, err
	}
	return n, nil
}

// MutateN applies exactly n substitutions. Each draw weights positions
// by the current mutability vector, substitutes per the 5-mer context
// table, and recomputes mutability only inside the +/-2 window of the
// changed site. The amino-acid view and functional flag are refreshed
// once at the end.
func (c *Chain) MutateN(rng *randx.Rand, model *shm.Model, n int) error {
	if n <= 0 {
		return nil
	}
	seq := []byte(c.Seq)
	for i := 0; i < n; i++ {
		pos, ok := rng.WeightedIndex(c.Mutability)
		if !ok {
			// A fully zero-weight vector can only come from table data;
			// fall back to a uniform site draw.
			pos = rng.Intn(len(seq))
		}
		probs, err := model.Substitution(c.Locus, paddedKmer(seq, pos))
		if err != nil {
			return err
		}
		base, ok := rng.WeightedIndex(probs[:])
		if !ok {
			return fmt.Errorf("degenerate substitution distribution for %s position %d", c.Locus, pos)
		}
		seq[pos] = dna.Bases[base]
		c.Seq = string(seq)
		if err := c.refreshWindow(pos, model); err != nil {
			return err
		}
	}
	c.AminoAcid = dna.Translate(c.GappedSeq())
	c.Functional = !dna.HasStop(c.AminoAcid)
	return nil
}

// CalcAffinity scores the chain against its target: matching positions
// multiply by the position multiplier, mismatches by its reciprocal.
// The overall, CDR-only and framework-only similarity fractions are
// recorded as a side effect.
func (c *Chain) CalcAffinity(t *target.Chain) float64 {
	n := len(c.AminoAcid)
	if len(t.AminoAcid) < n {
		n = len(t.AminoAcid)
	}
	matches := 0
	cdrMatches := 0
	affinity := 1.0
	for i := 0; i < n; i++ {
		if c.AminoAcid[i] == t.AminoAcid[i] {
			matches++
			if t.IsCDR(i) {
				cdrMatches++
			}
			affinity *= t.Multiplier(i)
		} else {
			affinity *= 1 / t.Multiplier(i)
		}
	}
	cdrSize := t.CDRSize()
	c.CDRSimilarity = fraction(cdrMatches, cdrSize)
	c.FWRSimilarity = fraction(matches-cdrMatches, n-cdrSize)
	c.Similarity = fraction(matches, n)
	c.Affinity = affinity
	return affinity
}

func buildMutability(seq string, locus shm.Locus, model *shm.Model) ([]float64, error) {
	weights := make([]float64, len(seq))
	b := []byte(seq)
	for i := range weights {
		w, err := model.Mutability(locus, paddedKmer(b, i))
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}
	return weights, nil
}

// refreshWindow recomputes mutability for every position whose 5-mer
// context overlaps the substituted site.
func (c *Chain) refreshWindow(pos int, model *shm.Model) error {
	b := []byte(c.Seq)
	lo := pos - 2
	if lo < 0 {
		lo = 0
	}
	hi := pos + 3
	if hi > len(b) {
		hi = len(b)
	}
	for j := lo; j < hi; j++ {
		w, err := model.Mutability(c.Locus, paddedKmer(b, j))
		if err != nil {
			return err
		}
		c.Mutability[j] = w
	}
	return nil
}

// paddedKmer reads the 5-mer centered on pos from a sequence padded with
// N on both ends.
func paddedKmer(seq []byte, pos int) string {
	var kmer [5]byte
	for i := 0; i < 5; i++ {
		j := pos - 2 + i
		if j < 0 || j >= len(seq) {
			kmer[i] = 'N'
		} else {
			kmer[i] = seq[j]
		}
	}
	return string(kmer[:])
}

func fraction(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
