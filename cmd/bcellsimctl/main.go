package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bcellsim/internal/export"
	"bcellsim/internal/model"
	"bcellsim/internal/naive"
	"bcellsim/internal/runner"
	"bcellsim/internal/settings"
	"bcellsim/internal/shm"
	"bcellsim/internal/storage"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "sequences":
		return runSequences(ctx, args[1:])
	case "population":
		return runPopulation(ctx, args[1:])
	case "trees":
		return runTrees(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: bcellsimctl <run|runs|sequences|population|trees> [flags]", msg)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional settings JSON path")
	naivePath := fs.String("naive", "", "naive pair CSV path")
	resultsDir := fs.String("o", "", "output directory")
	runs := fs.Int("n", 0, "number of simulations to run")
	workers := fs.Int("workers", 0, "worker count")
	seed := fs.Int64("seed", 0, "master rng seed (0 derives one per invocation)")
	seedList := fs.String("seeds", "", "comma-separated explicit per-run seeds")
	samples := fs.String("samples", "", "sample schedule start:stop:step for the germinal center")
	otherSamples := fs.String("other-samples", "", "sample schedule start:stop:step for the other compartment")
	sampleSize := fs.Int("sample-size", 0, "sample size for the germinal center")
	sampleSizeOther := fs.Int("sample-size-other", 0, "sample size for the other compartment")
	neutral := fs.Bool("neutral", false, "disable affinity selection")
	uniform := fs.Bool("uniform", false, "uniform mutation and substitution model")
	antigen := fs.Int("antigen", 0, "germinal center reproductive capacity")
	multiplier := fs.Float64("multiplier", 0, "selection multiplier")
	migrationRate := fs.Float64("migration-rate", 0, "expected emigrants per generation")
	memorySave := fs.Bool("memory-save", false, "keep only simplified trees")
	fullTree := fs.Bool("full-tree", false, "also export the unpruned tree")
	fasta := fs.Bool("fasta", false, "write sampled sequences as FASTA")
	heavyMut := fs.String("heavy-mutability", "", "heavy chain 5-mer mutability table")
	lightMut := fs.String("light-mutability", "", "light chain 5-mer mutability table")
	heavySub := fs.String("heavy-substitution", "", "heavy chain 5-mer substitution table")
	lightSub := fs.String("light-substitution", "", "light chain 5-mer substitution table")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadOrDefaultSettings(*configPath)
	if err != nil {
		return err
	}

	// Flags override the config file; env overrides apply last.
	if *runs > 0 {
		cfg.Runs = *runs
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *seedList != "" {
		seeds, err := parseSeeds(*seedList)
		if err != nil {
			return err
		}
		cfg.Seeds = seeds
		cfg.Runs = len(seeds)
	}
	if *resultsDir != "" {
		cfg.ResultsDir = *resultsDir
	}
	if *naivePath != "" {
		cfg.NaivePairs = *naivePath
	}
	if *neutral {
		cfg.Selection = false
	}
	if *uniform {
		cfg.UniformSHM = true
		cfg.Selection = false
	}
	if *multiplier > 0 {
		cfg.Multiplier = *multiplier
	}
	if *memorySave {
		cfg.MemorySave = true
		cfg.KeepFullTree = false
	} else if *fullTree {
		cfg.KeepFullTree = true
	}
	if *fasta {
		cfg.WriteFasta = true
	}
	if *storeKind != "" {
		cfg.StoreKind = *storeKind
	}
	if *dbPath != "" {
		cfg.StorePath = *dbPath
	}
	if *heavyMut != "" || *lightMut != "" || *heavySub != "" || *lightSub != "" {
		cfg.TableFiles = settings.TableFiles{
			HeavyMutability:   *heavyMut,
			LightMutability:   *lightMut,
			HeavySubstitution: *heavySub,
			LightSubstitution: *lightSub,
		}
	}
	if err := applyCompartmentFlags(&cfg, *samples, *otherSamples, *antigen, *migrationRate, *sampleSize, *sampleSizeOther); err != nil {
		return err
	}

	env, err := settings.ParseEnv()
	if err != nil {
		return err
	}
	env.Apply(&cfg)

	// No seed anywhere means a fresh one per invocation.
	if cfg.Seed == 0 && len(cfg.Seeds) == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	if cfg.ResultsDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg.ResultsDir = filepath.Join(wd, "results")
	}

	log := newLogger(*verbose)

	pool, shmModel, err := buildInputs(cfg, log)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.StoreKind, cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	r, err := runner.New(runner.Config{
		Settings: cfg,
		Model:    shmModel,
		Pool:     pool,
		Store:    store,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("seeds: %v\n", r.Seeds())
	results, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeResults(cfg, results); err != nil {
		return err
	}
	for _, res := range results {
		fmt.Printf("run completed run_id=%s clone=%d seed=%d sampled=%d max_affinity=%g\n",
			res.ID, res.Result.CloneID, res.Result.Seed, res.Result.SampledCells, res.Result.MaxAffinity)
	}
	fmt.Printf("results_dir=%s\n", filepath.Clean(cfg.ResultsDir))
	return nil
}

// writeResults emits the combined output files for all runs.
func writeResults(cfg settings.Settings, results []runner.Run) error {
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return err
	}

	airr, err := os.Create(filepath.Join(cfg.ResultsDir, "all_samples_airr.tsv"))
	if err != nil {
		return err
	}
	defer airr.Close()
	var all []model.SequenceRecord
	for _, res := range results {
		all = append(all, res.Result.Sequences...)
	}
	if err := export.WriteAIRR(airr, all); err != nil {
		return err
	}

	popFile, err := os.Create(filepath.Join(cfg.ResultsDir, "population_data.csv"))
	if err != nil {
		return err
	}
	defer popFile.Close()
	var pop []model.PopulationRecord
	for _, res := range results {
		pop = append(pop, res.Result.Population...)
	}
	if err := export.WritePopulation(popFile, pop); err != nil {
		return err
	}

	treeFile, err := os.Create(filepath.Join(cfg.ResultsDir, "all_trees.nex"))
	if err != nil {
		return err
	}
	defer treeFile.Close()
	var trees []model.TreeRecord
	for _, res := range results {
		trees = append(trees, res.Result.Trees...)
	}
	if err := export.WriteNexus(treeFile, trees); err != nil {
		return err
	}

	if cfg.WriteFasta {
		fastaFile, err := os.Create(filepath.Join(cfg.ResultsDir, "all_samples.fasta"))
		if err != nil {
			return err
		}
		defer fastaFile.Close()
		if err := export.WriteFasta(fastaFile, all); err != nil {
			return err
		}
	}
	return nil
}

// buildInputs loads the mutation model and the naive pair pool.
func buildInputs(cfg settings.Settings, log *slog.Logger) (*naive.Pool, *shm.Model, error) {
	var shmModel *shm.Model
	if cfg.UniformSHM {
		shmModel = shm.Uniform()
	} else {
		m, err := shm.LoadFiles(shm.TableFiles{
			HeavyMutability:   cfg.TableFiles.HeavyMutability,
			LightMutability:   cfg.TableFiles.LightMutability,
			HeavySubstitution: cfg.TableFiles.HeavySubstitution,
			LightSubstitution: cfg.TableFiles.LightSubstitution,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load mutation tables: %w", err)
		}
		shmModel = m
	}

	if cfg.NaivePairs == "" {
		return nil, nil, fmt.Errorf("a naive pair CSV is required (-naive)")
	}
	pool, warnings, err := naive.LoadFile(cfg.NaivePairs)
	if err != nil {
		return nil, nil, fmt.Errorf("load naive pairs: %w", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	return pool, shmModel, nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bcellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s clone=%d seed=%d sampled=%d max_affinity=%g degenerate_draws=%d\n",
			r.RunID, r.CloneID, r.Seed, r.SampledCells, r.MaxAffinity, r.DegenerateDraws)
	}
	return nil
}

func runSequences(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sequences", flag.ContinueOnError)
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bcellsim.db", "sqlite database path")
	runID := fs.String("run-id", "", "run id to query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("sequences requires -run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	records, ok, err := store.GetSequences(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no sequences for run %s", *runID)
	}
	return export.WriteAIRR(os.Stdout, records)
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bcellsim.db", "sqlite database path")
	runID := fs.String("run-id", "", "run id to query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("population requires -run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	records, ok, err := store.GetPopulation(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no population data for run %s", *runID)
	}
	return export.WritePopulation(os.Stdout, records)
}

func runTrees(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trees", flag.ContinueOnError)
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bcellsim.db", "sqlite database path")
	runID := fs.String("run-id", "", "run id to query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("trees requires -run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	trees, ok, err := store.GetTrees(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no trees for run %s", *runID)
	}
	return export.WriteNexus(os.Stdout, trees)
}

func openStore(ctx context.Context, kind, path string) (storage.Store, error) {
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseSeeds(list string) ([]int64, error) {
	parts := strings.Split(list, ",")
	seeds := make([]int64, 0, len(parts))
	for _, part := range parts {
		seed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}
