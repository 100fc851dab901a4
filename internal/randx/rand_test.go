package randx

import (
	"math"
	"testing"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("streams diverged at draw %d", i)
		}
	}
}

func TestSpawnSeedsDeterministicAndDistinct(t *testing.T) {
	first := SpawnSeeds(7, 16)
	second := SpawnSeeds(7, 16)
	seen := make(map[int64]bool, len(first))
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("spawn not deterministic at %d", i)
		}
		if seen[first[i]] {
			t.Fatalf("duplicate spawned seed %d", first[i])
		}
		seen[first[i]] = true
	}

	other := SpawnSeeds(8, 16)
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different masters produced identical seed sequences")
	}
}

func TestPoisson(t *testing.T) {
	r := New(1)
	if got := r.Poisson(0); got != 0 {
		t.Fatalf("Poisson(0) = %d", got)
	}
	if got := r.Poisson(-1); got != 0 {
		t.Fatalf("Poisson(-1) = %d", got)
	}

	// The sample mean over many draws should be near the parameter.
	const mean, n = 3.0, 20000
	sum := 0
	for i := 0; i < n; i++ {
		sum += r.Poisson(mean)
	}
	got := float64(sum) / n
	if got < mean-0.1 || got > mean+0.1 {
		t.Fatalf("Poisson sample mean %.3f, want near %.1f", got, mean)
	}
}

func TestWeightedIndexDegenerate(t *testing.T) {
	r := New(1)
	cases := [][]float64{
		nil,
		{},
		{0, 0, 0},
		{1, -1},
		{1, math.Inf(1)},
	}
	for _, weights := range cases {
		if _, ok := r.WeightedIndex(weights); ok {
			t.Errorf("expected degenerate for %v", weights)
		}
	}
}

func TestWeightedIndexFavorsHeavyWeight(t *testing.T) {
	r := New(1)
	weights := []float64{1, 0, 99}
	counts := make([]int, 3)
	for i := 0; i < 10000; i++ {
		idx, ok := r.WeightedIndex(weights)
		if !ok {
			t.Fatal("unexpected degenerate vector")
		}
		counts[idx]++
	}
	if counts[1] != 0 {
		t.Fatalf("zero-weight index drawn %d times", counts[1])
	}
	if counts[2] < counts[0]*50 {
		t.Fatalf("heavy index underdrawn: %v", counts)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	r := New(1)
	picked := r.SampleWithoutReplacement(10, 4)
	if len(picked) != 4 {
		t.Fatalf("got %d indices, want 4", len(picked))
	}
	seen := make(map[int]bool)
	for _, idx := range picked {
		if idx < 0 || idx >= 10 {
			t.Fatalf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("duplicate index %d", idx)
		}
		seen[idx] = true
	}

	if got := r.SampleWithoutReplacement(3, 5); len(got) != 3 {
		t.Fatalf("k should clamp to n, got %d indices", len(got))
	}
	if got := r.SampleWithoutReplacement(3, 0); got != nil {
		t.Fatalf("k=0 should return nil, got %v", got)
	}
}
