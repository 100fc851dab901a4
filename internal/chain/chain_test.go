package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bcellsim/internal/randx"
	"bcellsim/internal/shm"
	"bcellsim/internal/target"
)

func TestNewChainStripsGapsAndFindsJunction(t *testing.T) {
	c, err := New(Spec{
		Locus:       shm.Heavy,
		Aligned:     "ATG...GCCTGG",
		CDR3Length:  3,
		Junction:    "GCC",
		PerSiteRate: 0.001,
	}, shm.Uniform())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Seq != "ATGGCCTGG" {
		t.Fatalf("Seq = %q", c.Seq)
	}
	if got := c.GappedSeq(); got != "ATG...GCCTGG" {
		t.Fatalf("GappedSeq = %q", got)
	}
	if c.Junction() != "GCC" || c.JunctionLength() != 3 {
		t.Fatalf("junction = %q len %d", c.Junction(), c.JunctionLength())
	}
	if !c.Functional {
		t.Fatal("expected functional chain")
	}
	if len(c.Mutability) != len(c.Seq) {
		t.Fatalf("mutability length %d != seq length %d", len(c.Mutability), len(c.Seq))
	}
}

func TestNewChainJunctionMissing(t *testing.T) {
	_, err := New(Spec{
		Locus:    shm.Light,
		Aligned:  "ATGGCC",
		Junction: "TTT",
	}, shm.Uniform())
	if err == nil {
		t.Fatal("expected junction error")
	}
}

func TestNewChainStopCodonIsNonFunctional(t *testing.T) {
	c, err := New(Spec{
		Locus:   shm.Heavy,
		Aligned: "ATGTAAGCC",
	}, shm.Uniform())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Functional {
		t.Fatal("stop codon should mark the chain non-functional")
	}
}

func TestMutateNChangesSequenceDeterministically(t *testing.T) {
	model := shm.Uniform()
	build := func() *Chain {
		c, err := New(Spec{
			Locus:       shm.Heavy,
			Aligned:     "ATGGCCTGGACCGTTAAAGGGCCCACTGCA",
			PerSiteRate: 0.001,
		}, model)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		return c
	}

	a := build()
	b := build()
	if err := a.MutateN(randx.New(3), model, 5); err != nil {
		t.Fatalf("mutate a: %v", err)
	}
	if err := b.MutateN(randx.New(3), model, 5); err != nil {
		t.Fatalf("mutate b: %v", err)
	}
	if a.Seq != b.Seq {
		t.Fatalf("same seed diverged: %q vs %q", a.Seq, b.Seq)
	}
	if a.Seq == "ATGGCCTGGACCGTTAAAGGGCCCACTGCA" {
		t.Fatal("five substitutions left the sequence unchanged")
	}
	if len(a.Seq) != 30 {
		t.Fatalf("substitutions changed length: %d", len(a.Seq))
	}
}

func TestCopyIsIndependent(t *testing.T) {
	model := shm.Uniform()
	parent, err := New(Spec{
		Locus:       shm.Heavy,
		Aligned:     "ATGGCCTGGACCGTTAAAGGGCCCACTGCA",
		PerSiteRate: 0.001,
	}, model)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	child := parent.Copy()
	if err := child.MutateN(randx.New(9), model, 8); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if parent.Seq != "ATGGCCTGGACCGTTAAAGGGCCCACTGCA" {
		t.Fatal("mutating the copy changed the parent sequence")
	}
	for i, w := range parent.Mutability {
		if w != 1 {
			t.Fatalf("parent mutability[%d] changed to %v", i, w)
		}
	}
}

// The windowed refresh must leave the same mutability vector a full
// rebuild would produce, for a model where context actually matters.
func TestIncrementalMutabilityMatchesFullRebuild(t *testing.T) {
	model := loadVariedModel(t)
	c, err := New(Spec{
		Locus:       shm.Heavy,
		Aligned:     "ATGGCCTGGACCGTTAAAGGGCCCACTGCAATGGCC",
		PerSiteRate: 0.001,
	}, model)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := c.MutateN(randx.New(11), model, 20); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	fresh, err := buildMutability(c.Seq, c.Locus, model)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	for i := range fresh {
		if c.Mutability[i] != fresh[i] {
			t.Fatalf("mutability[%d] = %v after incremental update, full rebuild gives %v", i, c.Mutability[i], fresh[i])
		}
	}
}

func TestCalcAffinityMatchAndMismatch(t *testing.T) {
	const aligned = "ATGGCCTGGACCGTTAAAGGG"
	params := target.Params{
		Multiplier: 2,
		CDRDist:    target.DistConstant,
		CDRVar:     1.5,
		FWRDist:    target.DistConstant,
		FWRVar:     1.25,
	}
	rng := randx.New(1)
	tgt, err := target.NewChain(aligned, 0, params, rng)
	if err != nil {
		t.Fatalf("new target: %v", err)
	}

	c, err := New(Spec{Locus: shm.Heavy, Aligned: aligned}, shm.Uniform())
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	// 7 amino acids, all framework at constant 1.25.
	want := 1.0
	for i := 0; i < 7; i++ {
		want *= 1.25
	}
	got := c.CalcAffinity(tgt)
	if !approx(got, want) {
		t.Fatalf("matched affinity = %v, want %v", got, want)
	}
	if c.Similarity != 1 {
		t.Fatalf("similarity = %v, want 1", c.Similarity)
	}

	// Flip the first codon: ATG -> TTG changes M to L, one mismatch.
	mc, err := New(Spec{Locus: shm.Heavy, Aligned: "TTG" + aligned[3:]}, shm.Uniform())
	if err != nil {
		t.Fatalf("new mutated chain: %v", err)
	}
	got = mc.CalcAffinity(tgt)
	want = want / 1.25 / 1.25
	if !approx(got, want) {
		t.Fatalf("mismatched affinity = %v, want %v", got, want)
	}
	if !approx(mc.Similarity, 6.0/7.0) {
		t.Fatalf("similarity = %v, want 6/7", mc.Similarity)
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

// loadVariedModel writes and loads synthetic 5-mer tables in which
// mutability depends on the whole context, so incremental updates are
// actually observable.
func loadVariedModel(t *testing.T) *shm.Model {
	t.Helper()
	dir := t.TempDir()

	kmers := allKmers("ACGTN", 5)
	var mutability strings.Builder
	mutability.WriteString("Fivemer,Mutability\n")
	for _, k := range kmers {
		mutability.WriteString(fmt.Sprintf("%s,%d\n", k, kmerWeight(k)))
	}
	var substitution strings.Builder
	substitution.WriteString("Fivemer,A,C,G,T\n")
	for _, k := range kmers {
		row := [4]float64{0.25, 0.25, 0.25, 0.25}
		for i, base := range []byte("ACGT") {
			if base == k[2] {
				row[i] = 0
			}
		}
		substitution.WriteString(fmt.Sprintf("%s,%g,%g,%g,%g\n", k, row[0], row[1], row[2], row[3]))
	}

	mutPath := filepath.Join(dir, "mutability.csv")
	subPath := filepath.Join(dir, "substitution.csv")
	if err := os.WriteFile(mutPath, []byte(mutability.String()), 0o644); err != nil {
		t.Fatalf("write mutability: %v", err)
	}
	if err := os.WriteFile(subPath, []byte(substitution.String()), 0o644); err != nil {
		t.Fatalf("write substitution: %v", err)
	}

	model, err := shm.LoadFiles(shm.TableFiles{
		HeavyMutability:   mutPath,
		LightMutability:   mutPath,
		HeavySubstitution: subPath,
		LightSubstitution: subPath,
	})
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	return model
}

func kmerWeight(k string) int {
	sum := 0
	for i := 0; i < len(k); i++ {
		sum += int(k[i]) * (i + 1)
	}
	return sum%17 + 1
}

func allKmers(alphabet string, n int) []string {
	out := []string{""}
	for i := 0; i < n; i++ {
		next := make([]string, 0, len(out)*len(alphabet))
		for _, prefix := range out {
			for _, c := range alphabet {
				next = append(next, prefix+string(c))
			}
		}
		out = next
	}
	return out
}
