package settings

import (
	"strings"
	"testing"

	"bcellsim/internal/model"
)

func TestDefaultValidates(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
}

func TestDefaultSampleSchedule(t *testing.T) {
	s := Default()
	gc, ok := s.Compartment(model.GerminalCenter)
	if !ok {
		t.Fatal("no germinal center compartment")
	}
	want := []int{0, 25, 50, 75, 100, 125, 150, 175, 200}
	if len(gc.SampleTimes) != len(want) {
		t.Fatalf("sample times = %v", gc.SampleTimes)
	}
	for i, v := range want {
		if gc.SampleTimes[i] != v {
			t.Fatalf("sample times = %v, want %v", gc.SampleTimes, want)
		}
	}
	if s.EndTime() != 201 {
		t.Fatalf("EndTime = %d, want 201", s.EndTime())
	}
}

func TestValidateAggregatesViolations(t *testing.T) {
	s := Default()
	s.Multiplier = 1
	s.Runs = 0
	s.Workers = -2
	s.Compartments[0].MaxPopulation = 0
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"multiplier", "runs", "workers", "max population"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateRequiresGerminalCenter(t *testing.T) {
	s := Default()
	s.Compartments = s.Compartments[1:]
	if err := s.Validate(); err == nil {
		t.Fatal("expected error without a germinal center")
	}
}

func TestValidateRejectsDuplicateCompartments(t *testing.T) {
	s := Default()
	s.Compartments = append(s.Compartments, s.Compartments[0])
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateSeedCountMustMatchRuns(t *testing.T) {
	s := Default()
	s.Runs = 3
	s.Seeds = []int64{1, 2}
	if err := s.Validate(); err == nil {
		t.Fatal("expected seed count mismatch error")
	}
	s.Seeds = []int64{1, 2, 3}
	if err := s.Validate(); err != nil {
		t.Fatalf("matching seeds rejected: %v", err)
	}
}

func TestValidateExponentialVarRange(t *testing.T) {
	s := Default()
	s.CDRVar = 1
	if err := s.Validate(); err == nil {
		t.Fatal("cdr-var of 1 should be rejected for the exponential distribution")
	}
	s = Default()
	s.FWRDist = "bogus"
	if err := s.Validate(); err == nil {
		t.Fatal("unknown distribution should be rejected")
	}
}

func TestMemoryFractionSwitch(t *testing.T) {
	s := Default()
	if got := s.MemoryFraction(s.DifferentiationSwitch - 1); got != s.MemoryFractionEarly {
		t.Fatalf("early fraction = %v", got)
	}
	if got := s.MemoryFraction(s.DifferentiationSwitch); got != s.MemoryFractionLate {
		t.Fatalf("late fraction = %v", got)
	}
}

func TestEnvOverridesApply(t *testing.T) {
	t.Setenv("BCELLSIM_RUNS", "8")
	t.Setenv("BCELLSIM_STORE", "sqlite")
	t.Setenv("BCELLSIM_STORE_PATH", "/tmp/runs.db")

	o, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	s := Default()
	o.Apply(&s)
	if s.Runs != 8 {
		t.Fatalf("Runs = %d", s.Runs)
	}
	if s.StoreKind != "sqlite" || s.StorePath != "/tmp/runs.db" {
		t.Fatalf("store = %s %s", s.StoreKind, s.StorePath)
	}
	// Unset knobs keep their prior values.
	if s.Workers != 1 {
		t.Fatalf("Workers = %d", s.Workers)
	}
}

func TestEnvOverridesRejectGarbage(t *testing.T) {
	t.Setenv("BCELLSIM_RUNS", "many")
	if _, err := ParseEnv(); err == nil {
		t.Fatal("expected parse error")
	}
}
