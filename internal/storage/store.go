package storage

import (
	"context"

	"bcellsim/internal/model"
)

// Store persists completed runs and their record sets, keyed by run ID.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveSequences(ctx context.Context, runID string, records []model.SequenceRecord) error
	GetSequences(ctx context.Context, runID string) ([]model.SequenceRecord, bool, error)
	SavePopulation(ctx context.Context, runID string, records []model.PopulationRecord) error
	GetPopulation(ctx context.Context, runID string) ([]model.PopulationRecord, bool, error)
	SaveTrees(ctx context.Context, runID string, trees []model.TreeRecord) error
	GetTrees(ctx context.Context, runID string) ([]model.TreeRecord, bool, error)
}
