// Package runner orchestrates independent simulation runs over a fixed
// worker pool. Per-run seeds are spawned deterministically from the
// master seed, so a repeated invocation with the same settings and seed
// reproduces every run regardless of worker count.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"bcellsim/internal/model"
	"bcellsim/internal/naive"
	"bcellsim/internal/randx"
	"bcellsim/internal/settings"
	"bcellsim/internal/shm"
	"bcellsim/internal/sim"
	"bcellsim/internal/storage"
)

// Config wires the runner. Store is optional; results are returned
// either way.
type Config struct {
	Settings settings.Settings
	Model    *shm.Model
	Pool     *naive.Pool
	Store    storage.Store
	Logger   *slog.Logger
}

// Run is one completed simulation with its persistence identity.
type Run struct {
	ID     string
	Result sim.Result
}

type Runner struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) (*Runner, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("mutation model is required")
	}
	if cfg.Pool == nil || cfg.Pool.Len() == 0 {
		return nil, fmt.Errorf("a naive pair source is required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, log: cfg.Logger}, nil
}

// Seeds returns the per-run seeds the next Run call will use: the
// explicit list when one is configured, otherwise a spawned sequence
// from the master seed.
func (r *Runner) Seeds() []int64 {
	if len(r.cfg.Settings.Seeds) > 0 {
		return append([]int64(nil), r.cfg.Settings.Seeds...)
	}
	return randx.SpawnSeeds(r.cfg.Settings.Seed, r.cfg.Settings.Runs)
}

// Run executes all configured runs and returns them in run order. The
// first failure aborts the batch.
func (r *Runner) Run(ctx context.Context) ([]Run, error) {
	seeds := r.Seeds()
	if len(seeds) != r.cfg.Settings.Runs {
		return nil, fmt.Errorf("have %d seeds for %d runs", len(seeds), r.cfg.Settings.Runs)
	}
	r.log.Info("starting runs", "runs", len(seeds), "workers", r.cfg.Settings.Workers)

	type job struct {
		idx  int
		seed int64
	}
	type result struct {
		idx int
		run Run
		err error
	}

	jobs := make(chan job)
	results := make(chan result, len(seeds))

	workerCount := r.cfg.Settings.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(seeds) {
		workerCount = len(seeds)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				run, err := r.runOne(ctx, j.idx, j.seed)
				results <- result{idx: j.idx, run: run, err: err}
			}
		}()
	}

	for i, seed := range seeds {
		jobs <- job{idx: i, seed: seed}
	}
	close(jobs)

	wg.Wait()
	close(results)

	runs := make([]Run, len(seeds))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		runs[res.idx] = res.run
	}

	if r.cfg.Store != nil {
		if err := r.persist(ctx, runs); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// runOne executes a single run. Clone IDs are 1-based to match the
// exported record naming.
func (r *Runner) runOne(ctx context.Context, idx int, seed int64) (Run, error) {
	cloneID := idx + 1
	engine, err := sim.New(sim.Config{
		Settings: r.cfg.Settings,
		Model:    r.cfg.Model,
		Pool:     r.cfg.Pool,
		CloneID:  cloneID,
		Seed:     seed,
		Logger:   r.log,
	})
	if err != nil {
		return Run{}, fmt.Errorf("build run %d: %w", cloneID, err)
	}
	res, err := engine.Run(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("run %d: %w", cloneID, err)
	}
	r.log.Info("run complete",
		"clone", cloneID,
		"seed", seed,
		"sampled", res.SampledCells,
		"max_affinity", res.MaxAffinity)
	return Run{ID: uuid.NewString(), Result: res}, nil
}

func (r *Runner) persist(ctx context.Context, runs []Run) error {
	for _, run := range runs {
		rec := model.RunRecord{
			RunID:           run.ID,
			CloneID:         run.Result.CloneID,
			Seed:            run.Result.Seed,
			MaxAffinity:     run.Result.MaxAffinity,
			DegenerateDraws: run.Result.DegenerateDraws,
			SampledCells:    run.Result.SampledCells,
		}
		if err := r.cfg.Store.SaveRun(ctx, rec); err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		if err := r.cfg.Store.SaveSequences(ctx, run.ID, run.Result.Sequences); err != nil {
			return fmt.Errorf("save sequences %s: %w", run.ID, err)
		}
		if err := r.cfg.Store.SavePopulation(ctx, run.ID, run.Result.Population); err != nil {
			return fmt.Errorf("save population %s: %w", run.ID, err)
		}
		if err := r.cfg.Store.SaveTrees(ctx, run.ID, run.Result.Trees); err != nil {
			return fmt.Errorf("save trees %s: %w", run.ID, err)
		}
	}
	return nil
}
