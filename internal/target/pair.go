package target

import "bcellsim/internal/randx"

// Pair couples the heavy and light targets a cell is scored against.
type Pair struct {
	Heavy *Chain
	Light *Chain
}

// NewPair builds both target chains from the naive pair's gapped views.
func NewPair(heavyGapped, lightGapped string, heavyCDR3, lightCDR3 int, params Params, rng *randx.Rand) (*Pair, error) {
	heavy, err := NewChain(heavyGapped, heavyCDR3, params, rng)
	if err != nil {
		return nil, err
	}
	light, err := NewChain(lightGapped, lightCDR3, params, rng)
	if err != nil {
		return nil, err
	}
	return &Pair{Heavy: heavy, Light: light}, nil
}

// Mutate introduces the configured number of target mutations per chain.
func (p *Pair) Mutate(heavyN, lightN int, rng *randx.Rand) error {
	if err := p.Heavy.Mutate(heavyN, rng); err != nil {
		return err
	}
	return p.Light.Mutate(lightN, rng)
}

// MaxAffinity is the product of both chains' maxima.
func (p *Pair) MaxAffinity() float64 {
	return p.Heavy.MaxAffinity() * p.Light.MaxAffinity()
}
