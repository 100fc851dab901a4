package storage

import (
	"context"
	"sort"
	"sync"

	"bcellsim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	sequences   map[string][]model.SequenceRecord
	population  map[string][]model.PopulationRecord
	trees       map[string][]model.TreeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.sequences = make(map[string][]model.SequenceRecord)
	s.population = make(map[string][]model.PopulationRecord)
	s.trees = make(map[string][]model.TreeRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CloneID < runs[j].CloneID })
	return runs, nil
}

func (s *MemoryStore) SaveSequences(_ context.Context, runID string, records []model.SequenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.SequenceRecord, len(records))
	copy(copied, records)
	s.sequences[runID] = copied
	return nil
}

func (s *MemoryStore) GetSequences(_ context.Context, runID string) ([]model.SequenceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.sequences[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.SequenceRecord, len(records))
	copy(copied, records)
	return copied, true, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, runID string, records []model.PopulationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.PopulationRecord, len(records))
	copy(copied, records)
	s.population[runID] = copied
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string) ([]model.PopulationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.population[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.PopulationRecord, len(records))
	copy(copied, records)
	return copied, true, nil
}

func (s *MemoryStore) SaveTrees(_ context.Context, runID string, trees []model.TreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TreeRecord, len(trees))
	copy(copied, trees)
	s.trees[runID] = copied
	return nil
}

func (s *MemoryStore) GetTrees(_ context.Context, runID string) ([]model.TreeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trees, ok := s.trees[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TreeRecord, len(trees))
	copy(copied, trees)
	return copied, true, nil
}
