//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"bcellsim/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bcellsim.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.RunRecord{RunID: "run-1", CloneID: 1, Seed: 7, MaxAffinity: 64, SampledCells: 40}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loadedRun, ok, err := store.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loadedRun.Seed != run.Seed {
		t.Fatalf("unexpected run loaded: ok=%t value=%+v", ok, loadedRun)
	}

	sequences := []model.SequenceRecord{{
		SequenceID: "1_3_light",
		CellID:     "1_3",
		CloneID:    1,
		Sequence:   "GATTACA",
		SampleTime: 50,
		Locus:      "IGL",
		Constants:  map[string]string{"v_call": "IGLV1-44*01"},
	}}
	if err := store.SaveSequences(ctx, run.RunID, sequences); err != nil {
		t.Fatalf("save sequences: %v", err)
	}
	loadedSequences, ok, err := store.GetSequences(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get sequences: %v", err)
	}
	if !ok || len(loadedSequences) != 1 || loadedSequences[0].Constants["v_call"] != "IGLV1-44*01" {
		t.Fatalf("unexpected sequences loaded: %+v", loadedSequences)
	}

	population := []model.PopulationRecord{{Time: 3, Location: "germinal_center", CloneID: 1, Population: 128}}
	if err := store.SavePopulation(ctx, run.RunID, population); err != nil {
		t.Fatalf("save population: %v", err)
	}
	loadedPopulation, ok, err := store.GetPopulation(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get population: %v", err)
	}
	if !ok || len(loadedPopulation) != 1 || loadedPopulation[0].Population != 128 {
		t.Fatalf("unexpected population loaded: %+v", loadedPopulation)
	}

	trees := []model.TreeRecord{{Name: model.TreeSimplifiedTime, CloneID: 1, Newick: "((x:1,y:2):1);"}}
	if err := store.SaveTrees(ctx, run.RunID, trees); err != nil {
		t.Fatalf("save trees: %v", err)
	}
	loadedTrees, ok, err := store.GetTrees(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get trees: %v", err)
	}
	if !ok || len(loadedTrees) != 1 || loadedTrees[0].Name != model.TreeSimplifiedTime {
		t.Fatalf("unexpected trees loaded: %+v", loadedTrees)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bcellsim.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	run := model.RunRecord{RunID: "persisted-run", CloneID: 2, Seed: 99}
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.CloneID != run.CloneID {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}
