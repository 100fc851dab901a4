package settings

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are the program-level knobs that may be set through the
// environment; they are applied last and win over the config file and
// flags.
type EnvOverrides struct {
	ResultsDir string `env:"BCELLSIM_RESULTS_DIR"`
	Seed       int64  `env:"BCELLSIM_SEED"`
	Runs       int    `env:"BCELLSIM_RUNS"`
	Workers    int    `env:"BCELLSIM_WORKERS"`
	StoreKind  string `env:"BCELLSIM_STORE"`
	StorePath  string `env:"BCELLSIM_STORE_PATH"`
}

// ParseEnv loads overrides from the environment.
func ParseEnv() (EnvOverrides, error) {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply copies the non-zero overrides onto the settings.
func (o EnvOverrides) Apply(s *Settings) {
	if o.ResultsDir != "" {
		s.ResultsDir = o.ResultsDir
	}
	if o.Seed != 0 {
		s.Seed = o.Seed
	}
	if o.Runs != 0 {
		s.Runs = o.Runs
	}
	if o.Workers != 0 {
		s.Workers = o.Workers
	}
	if o.StoreKind != "" {
		s.StoreKind = o.StoreKind
	}
	if o.StorePath != "" {
		s.StorePath = o.StorePath
	}
}
