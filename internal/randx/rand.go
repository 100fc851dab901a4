// Package randx wraps math/rand with the draws the simulation needs:
// Poisson counts, exponential multipliers, weighted index selection and
// sampling without replacement. Every run owns exactly one Rand; nothing
// in the module reaches for a global source.
package randx

import (
	"math"
	"math/rand"
)

type Rand struct {
	*rand.Rand
}

// New returns a stream seeded deterministically.
func New(seed int64) *Rand {
	return &Rand{Rand: rand.New(rand.NewSource(seed))}
}

// SpawnSeeds derives n independent child seeds from a master seed using a
// splitmix64 walk, so concurrent runs get reproducible private streams.
func SpawnSeeds(master int64, n int) []int64 {
	seeds := make([]int64, 0, n)
	x := uint64(master)
	for i := 0; i < n; i++ {
		x += 0x9E3779B97F4A7C15
		z := x
		z ^= z >> 30
		z *= 0xBF58476D1CE4E5B9
		z ^= z >> 27
		z *= 0x94D049BB133111EB
		z ^= z >> 31
		seeds = append(seeds, int64(z))
	}
	return seeds
}

// Poisson draws a count with the given mean (Knuth's method). The means
// in this model are small, so the multiplicative form is fine.
func (r *Rand) Poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= r.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// Exponential draws from an exponential distribution with the given mean.
func (r *Rand) Exponential(mean float64) float64 {
	return r.ExpFloat64() * mean
}

// Normal draws from a normal distribution.
func (r *Rand) Normal(mean, sigma float64) float64 {
	return r.NormFloat64()*sigma + mean
}

// WeightedIndex draws one index proportionally to the weights. ok is
// false when the weight vector is degenerate (non-positive sum or a
// non-finite entry); callers decide whether to fall back to a uniform
// draw.
func (r *Rand) WeightedIndex(weights []float64) (int, bool) {
	if len(weights) == 0 {
		return 0, false
	}
	total := 0.0
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return 0, false
		}
		total += w
	}
	if total <= 0 {
		return 0, false
	}
	pick := r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if pick <= acc {
			return i, true
		}
	}
	return len(weights) - 1, true
}

// SampleWithoutReplacement returns k distinct indices from [0, n),
// drawn by a partial Fisher-Yates shuffle. k is clamped to n.
func (r *Rand) SampleWithoutReplacement(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
