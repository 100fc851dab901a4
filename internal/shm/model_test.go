package shm

import (
	"errors"
	"strings"
	"testing"
)

func TestUniformModel(t *testing.T) {
	m := Uniform()

	w, err := m.Mutability(Heavy, "AAAAA")
	if err != nil {
		t.Fatalf("mutability: %v", err)
	}
	if w != 1 {
		t.Fatalf("uniform mutability = %v, want 1", w)
	}

	p, err := m.Substitution(Light, "AACGT")
	if err != nil {
		t.Fatalf("substitution: %v", err)
	}
	// Center base C must get zero mass, the rest a third each.
	if p[1] != 0 {
		t.Fatalf("center base has mass %v", p[1])
	}
	sum := p[0] + p[1] + p[2] + p[3]
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("substitution mass sums to %v", sum)
	}
}

func TestUnknownContextIsFatal(t *testing.T) {
	m := &Model{
		mutability:   [2]map[string]float64{{"AAAAA": 0.5}, {}},
		substitution: [2]map[string][4]float64{{}, {}},
	}

	if _, err := m.Mutability(Heavy, "AAAAA"); err != nil {
		t.Fatalf("known context: %v", err)
	}
	_, err := m.Mutability(Heavy, "CCCCC")
	if !errors.Is(err, ErrUnknownContext) {
		t.Fatalf("expected ErrUnknownContext, got %v", err)
	}
	if !strings.Contains(err.Error(), "CCCCC") {
		t.Fatalf("error should name the context: %v", err)
	}
}

func TestLocusStrings(t *testing.T) {
	if Heavy.String() != "heavy" || Light.String() != "light" {
		t.Fatal("unexpected locus strings")
	}
	if Heavy.Tag() != "IGH" || Light.Tag() != "IGL" {
		t.Fatal("unexpected locus tags")
	}
}
