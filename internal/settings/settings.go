// Package settings holds the externally supplied run configuration. It
// is constructed and validated before the engine starts; the core never
// reads configuration from ambient state.
package settings

import (
	"errors"
	"fmt"

	"bcellsim/internal/model"
	"bcellsim/internal/target"
)

// CompartmentSettings configures one population compartment.
type CompartmentSettings struct {
	Name          model.CompartmentName
	SampleTimes   []int
	SampleSize    int
	MutationRate  float64
	MaxPopulation int
	MigrationRate float64
}

// Settings is the full per-run configuration. Zero-valued fields are
// filled by Default; Validate reports every violation in one pass so a
// bad configuration can be fixed without repeated round trips.
type Settings struct {
	Compartments []CompartmentSettings

	// Per-site mutation probabilities per locus. The heavy default is
	// 0.33 expected mutations over the mean observed heavy length; the
	// light default is 0.16 over the mean light length.
	HeavySHMPerSite float64
	LightSHMPerSite float64

	TargetMutationsHeavy int
	TargetMutationsLight int

	Selection  bool
	Multiplier float64
	CDRDist    string
	CDRVar     float64
	FWRDist    string
	FWRVar     float64

	// MigrationStart is the first generation emigration may occur.
	MigrationStart int
	// DifferentiationSwitch is the generation at which emigrant output
	// flips from mostly memory to mostly plasma.
	DifferentiationSwitch int
	MemoryFractionEarly   float64
	MemoryFractionLate    float64

	MemorySave   bool
	KeepFullTree bool

	Runs    int
	Workers int
	Seed    int64
	Seeds   []int64

	ResultsDir string
	WriteFasta bool
	UniformSHM bool
	NaivePairs string
	TableFiles TableFiles
	StoreKind  string
	StorePath  string
}

// TableFiles mirrors shm.TableFiles without importing it here; cmd wires
// the two together.
type TableFiles struct {
	HeavyMutability   string
	LightMutability   string
	HeavySubstitution string
	LightSubstitution string
}

// Default returns the reference configuration: a sampled germinal
// center and a passive "other" compartment.
func Default() Settings {
	return Settings{
		Compartments: []CompartmentSettings{
			{
				Name:          model.GerminalCenter,
				SampleTimes:   rangeInts(0, 201, 25),
				SampleSize:    50,
				MutationRate:  1.0,
				MaxPopulation: 1000,
				MigrationRate: 0,
			},
			{
				Name:          model.Other,
				SampleTimes:   nil,
				SampleSize:    12,
				MutationRate:  0.0,
				MaxPopulation: 1000,
				MigrationRate: 0,
			},
		},
		HeavySHMPerSite:       0.0008908272571108565,
		LightSHMPerSite:       0.0004923076923076923,
		TargetMutationsHeavy:  5,
		TargetMutationsLight:  2,
		Selection:             true,
		Multiplier:            2,
		CDRDist:               string(target.DistExponential),
		CDRVar:                0.995,
		FWRDist:               string(target.DistExponential),
		FWRVar:                0.85,
		MigrationStart:        25,
		DifferentiationSwitch: 50,
		MemoryFractionEarly:   0.9,
		MemoryFractionLate:    0.1,
		Runs:                  1,
		Workers:               1,
		StoreKind:             "memory",
	}
}

// Validate checks the whole configuration and returns every violation
// joined into one error, or nil.
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(s.Compartments) == 0 {
		add("at least one compartment is required")
	}
	seen := map[model.CompartmentName]bool{}
	hasGC := false
	for i, c := range s.Compartments {
		if _, err := model.ParseCompartment(string(c.Name)); err != nil {
			errs = append(errs, fmt.Errorf("compartment %d: %w", i, err))
			continue
		}
		if seen[c.Name] {
			add("compartment %d: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Name == model.GerminalCenter {
			hasGC = true
		}
		if c.MutationRate < 0 {
			add("compartment %q: mutation rate must be >= 0", c.Name)
		}
		if c.MaxPopulation <= 0 {
			add("compartment %q: max population must be > 0", c.Name)
		}
		if c.MigrationRate < 0 {
			add("compartment %q: migration rate must be >= 0", c.Name)
		}
		if c.SampleSize < 0 {
			add("compartment %q: sample size must be >= 0", c.Name)
		}
		for _, t := range c.SampleTimes {
			if t < 0 {
				add("compartment %q: sample time %d is negative", c.Name, t)
			}
		}
	}
	if len(s.Compartments) > 0 && !hasGC {
		add("a %q compartment is required", model.GerminalCenter)
	}

	if s.HeavySHMPerSite <= 0 || s.LightSHMPerSite <= 0 {
		add("per-site mutation probabilities must be > 0")
	}
	if s.TargetMutationsHeavy < 0 || s.TargetMutationsLight < 0 {
		add("target mutation counts must be >= 0")
	}
	if s.Multiplier <= 1 {
		add("multiplier must be > 1")
	}
	for _, d := range []struct {
		name string
		dist string
		v    float64
	}{{"cdr", s.CDRDist, s.CDRVar}, {"fwr", s.FWRDist, s.FWRVar}} {
		switch target.Dist(d.dist) {
		case target.DistExponential:
			if d.v <= 0 || d.v >= 1 {
				add("%s-var must be in (0, 1) for the exponential distribution", d.name)
			}
		case target.DistConstant, target.DistConstantNoise, "":
		default:
			add("unknown %s distribution %q", d.name, d.dist)
		}
	}
	if s.MemoryFractionEarly < 0 || s.MemoryFractionEarly > 1 ||
		s.MemoryFractionLate < 0 || s.MemoryFractionLate > 1 {
		add("memory fractions must be in [0, 1]")
	}
	if s.Runs <= 0 {
		add("runs must be > 0")
	}
	if s.Workers <= 0 {
		add("workers must be > 0")
	}
	if len(s.Seeds) > 0 && len(s.Seeds) != s.Runs {
		add("explicit seeds must match the number of runs: %d != %d", len(s.Seeds), s.Runs)
	}

	return errors.Join(errs...)
}

// EndTime is one past the last scheduled sample.
func (s *Settings) EndTime() int {
	end := 0
	for _, c := range s.Compartments {
		for _, t := range c.SampleTimes {
			if t >= end {
				end = t + 1
			}
		}
	}
	return end
}

// Compartment looks up one compartment's settings.
func (s *Settings) Compartment(name model.CompartmentName) (CompartmentSettings, bool) {
	for _, c := range s.Compartments {
		if c.Name == name {
			return c, true
		}
	}
	return CompartmentSettings{}, false
}

// MemoryFraction is the fraction of emigrants differentiating to memory
// at a given generation.
func (s *Settings) MemoryFraction(time int) float64 {
	if time < s.DifferentiationSwitch {
		return s.MemoryFractionEarly
	}
	return s.MemoryFractionLate
}

// TargetParams assembles the target-model parameters.
func (s *Settings) TargetParams() target.Params {
	return target.Params{
		Multiplier: s.Multiplier,
		CDRDist:    target.Dist(s.CDRDist),
		CDRVar:     s.CDRVar,
		FWRDist:    target.Dist(s.FWRDist),
		FWRVar:     s.FWRVar,
	}
}

func rangeInts(start, stop, step int) []int {
	var out []int
	for i := start; i < stop; i += step {
		out = append(out, i)
	}
	return out
}
