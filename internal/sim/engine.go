// Package sim drives one run of the branching process: per generation it
// applies emigration/differentiation, affinity-weighted reproduction,
// migration completion, scheduled sampling and opportunistic pruning,
// then serializes the surviving lineage trees.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bcellsim/internal/cell"
	"bcellsim/internal/chain"
	"bcellsim/internal/lineage"
	"bcellsim/internal/model"
	"bcellsim/internal/naive"
	"bcellsim/internal/randx"
	"bcellsim/internal/settings"
	"bcellsim/internal/shm"
	"bcellsim/internal/target"
)

// Config wires one run. Every stochastic draw of the run flows through
// the stream seeded by Seed; nothing is shared with other runs.
type Config struct {
	Settings settings.Settings
	Model    *shm.Model
	Pool     *naive.Pool
	CloneID  int
	Seed     int64
	Logger   *slog.Logger
}

// Result is everything one run hands back to the collector.
type Result struct {
	CloneID         int
	Seed            int64
	Sequences       []model.SequenceRecord
	Population      []model.PopulationRecord
	Trees           []model.TreeRecord
	MaxAffinity     float64
	DegenerateDraws int
	SampledCells    int
}

// Engine holds the mutable state of one run.
type Engine struct {
	cfg          Config
	rng          *randx.Rand
	log          *slog.Logger
	nextID       int64
	time         int
	endTime      int
	root         *lineage.Node
	tgt          *target.Pair
	compartments []*compartment
	sampled      map[int64]struct{}
	sequences    []model.SequenceRecord
	population   []model.PopulationRecord
	degenerate   int
}

// New validates the configuration, draws the founding naive pair, builds
// the shared affinity target and seeds the germinal center with the root
// node.
func New(cfg Config) (*Engine, error) {
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

	e := &Engine{
		cfg:     cfg,
		rng:     randx.New(cfg.Seed),
		log:     cfg.Logger.With("clone", cfg.CloneID),
		endTime: cfg.Settings.EndTime(),
		sampled: make(map[int64]struct{}),
	}

	pair := cfg.Pool.Sample(e.rng)
	heavy, err := chain.New(chain.Spec{
		Locus:       shm.Heavy,
		Aligned:     pair.Heavy.Aligned,
		CDR3Length:  pair.Heavy.CDR3Length,
		Junction:    pair.Heavy.Junction,
		PerSiteRate: cfg.Settings.HeavySHMPerSite,
		Constants:   pair.Heavy.Constants,
	}, cfg.Model)
	if err != nil {
		return nil, err
	}
	light, err := chain.New(chain.Spec{
		Locus:       shm.Light,
		Aligned:     pair.Light.Aligned,
		CDR3Length:  pair.Light.CDR3Length,
		Junction:    pair.Light.Junction,
		PerSiteRate: cfg.Settings.LightSHMPerSite,
		Constants:   pair.Light.Constants,
	}, cfg.Model)
	if err != nil {
		return nil, err
	}

	gcSettings, ok := cfg.Settings.Compartment(model.GerminalCenter)
	if !ok {
		return nil, fmt.Errorf("settings have no %q compartment", model.GerminalCenter)
	}
	founder := cell.New(e.newID(), heavy, light, 0, model.GerminalCenter, gcSettings.MutationRate)
	e.root = lineage.NewRoot(founder, cfg.CloneID)

	e.tgt, err = target.NewPair(
		heavy.GappedSeq(), light.GappedSeq(),
		heavy.CDR3Length, light.CDR3Length,
		cfg.Settings.TargetParams(), e.rng,
	)
	if err != nil {
		return nil, err
	}
	if err := e.tgt.Mutate(cfg.Settings.TargetMutationsHeavy, cfg.Settings.TargetMutationsLight, e.rng); err != nil {
		return nil, err
	}
	founder.CalcAffinity(e.tgt)

	for _, cs := range cfg.Settings.Compartments {
		comp := &compartment{settings: cs}
		if cs.Name == model.GerminalCenter {
			comp.current = []*lineage.Node{e.root}
		}
		e.compartments = append(e.compartments, comp)
	}

	// The founder contributes records at time zero; it is never removed
	// by sampling.
	e.sequences = append(e.sequences, e.cellRecords(e.root, 0)...)

	return e, nil
}

// Run executes the generation loop to the configured end time and
// serializes the tree set.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	for e.time = 0; e.time < e.endTime; e.time++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		for _, comp := range e.compartments {
			next, err := e.nextGeneration(comp)
			if err != nil {
				return Result{}, err
			}
			comp.current = next
		}
		for _, comp := range e.compartments {
			comp.absorbImmigrants()
		}
		for _, comp := range e.compartments {
			e.recordPopulation(comp)
			e.sampleTips(comp)
		}
		if e.time%25 == 0 {
			e.log.Debug("generation complete", "time", e.time, "population", len(e.gc().current))
		}
	}

	return Result{
		CloneID:         e.cfg.CloneID,
		Seed:            e.cfg.Seed,
		Sequences:       e.sequences,
		Population:      e.population,
		Trees:           e.buildTrees(),
		MaxAffinity:     e.tgt.MaxAffinity(),
		DegenerateDraws: e.degenerate,
		SampledCells:    len(e.sampled),
	}, nil
}

// nextGeneration runs emigration, selection and reproduction for one
// compartment and returns the surviving children. An empty compartment
// yields an empty next generation; that is not an error.
func (e *Engine) nextGeneration(c *compartment) ([]*lineage.Node, error) {
	c.realized = c.realized[:0]
	c.reproducing = 0

	current := c.current
	if len(current) == 0 {
		return nil, nil
	}

	if c.settings.MigrationRate > 0 && e.time >= e.cfg.Settings.MigrationStart {
		current = e.emigrate(c, current)
	}

	if c.settings.Name == model.Other {
		// No capacity control here: every surviving cell replicates 1:1.
		for _, n := range current {
			n.Antigen = 1
		}
	} else {
		e.distributeAntigen(current)
	}

	var next []*lineage.Node
	var dead []*lineage.Node
	for _, n := range current {
		n.Cell.Kill()
		k := n.Antigen
		if k > model.MaxRealizedChildren {
			k = model.MaxRealizedChildren
		}
		c.realized = append(c.realized, k)
		if n.Antigen > 0 {
			c.reproducing++
		}
		dead = dead[:0]
		for i := 0; i < k; i++ {
			child, err := e.spawnChild(n, c)
			if err != nil {
				return nil, err
			}
			if child.Cell.Alive {
				next = append(next, child)
			} else {
				dead = append(dead, child)
			}
		}
		// Prune only once the parent's whole fan-out is attached;
		// pruning a dead first child mid-spawn would walk past the
		// still-childless parent and detach the live siblings.
		if e.cfg.Settings.MemorySave {
			for _, d := range dead {
				lineage.PruneUp(d)
			}
			if n.Antigen == 0 {
				lineage.PruneUp(n)
			}
		}
	}
	return next, nil
}

// emigrate moves a Poisson-sized subset (at most half the population)
// out of the compartment. Each emigrant lineage gets an unmutated copy
// of its cell, differentiated by the day-dependent schedule, buffered
// into the destination compartment.
func (e *Engine) emigrate(c *compartment, current []*lineage.Node) []*lineage.Node {
	size := e.rng.Poisson(c.settings.MigrationRate)
	if size > len(current)/2 {
		size = len(current) / 2
	}
	if size <= 0 {
		return current
	}
	dest := e.compartmentByName(model.Other)
	if dest == nil || dest == c {
		return current
	}

	picked := e.rng.SampleWithoutReplacement(len(current), size)
	leaving := make(map[int]bool, size)
	for _, idx := range picked {
		leaving[idx] = true
	}
	for _, idx := range picked {
		parent := current[idx]
		emigrant := parent.Cell.Remake(e.newID())
		kind := cell.Plasma
		if e.rng.Float64() < e.cfg.Settings.MemoryFraction(e.time) {
			kind = cell.Memory
		}
		// The transition out of Naive cannot fail here; emigrants are
		// always naive GC cells.
		if err := emigrant.Differentiate(kind); err != nil {
			e.log.Warn("differentiation rejected", "err", err)
		}
		node := lineage.NewChild(emigrant, parent, 0, 0)
		parent.AddChild(node)
		parent.Cell.Kill()
		dest.immigrating = append(dest.immigrating, node)
	}

	kept := make([]*lineage.Node, 0, len(current)-size)
	for i, n := range current {
		if !leaving[i] {
			kept = append(kept, n)
		}
	}
	return kept
}

// distributeAntigen runs the capacity-controlled selection: the
// compartment's reproductive budget is handed out one unit at a time,
// weighted by affinity when selection is on. A degenerate weight vector
// degrades to an unweighted draw; that fallback is counted and logged
// rather than silent.
func (e *Engine) distributeAntigen(current []*lineage.Node) {
	var weights []float64
	if e.cfg.Settings.Selection {
		weights = make([]float64, len(current))
		for i, n := range current {
			weights[i] = n.Cell.Affinity
		}
	}
	warned := false
	for i := 0; i < e.settingsOf(current).MaxPopulation; i++ {
		var idx int
		if weights != nil {
			picked, ok := e.rng.WeightedIndex(weights)
			if ok {
				idx = picked
			} else {
				e.degenerate++
				if !warned {
					e.log.Warn("degenerate selection weights, falling back to unweighted draw",
						"time", e.time, "population", len(current))
					warned = true
				}
				idx = e.rng.Intn(len(current))
			}
		} else {
			idx = e.rng.Intn(len(current))
		}
		current[idx].Antigen++
	}
}

// settingsOf returns the owning compartment's settings for a node set.
// All nodes of one generation share a compartment.
func (e *Engine) settingsOf(current []*lineage.Node) settings.CompartmentSettings {
	comp := e.compartmentByName(current[0].Cell.Location)
	if comp == nil {
		return settings.CompartmentSettings{}
	}
	return comp.settings
}

// spawnChild produces one child: independently copied chains, a fresh
// round of mutation, and a fresh affinity evaluation against the shared
// target. Children with a non-functional chain are marked dead and never
// join the next generation.
func (e *Engine) spawnChild(parent *lineage.Node, c *compartment) (*lineage.Node, error) {
	child := cell.New(
		e.newID(),
		parent.Cell.Heavy.Copy(),
		parent.Cell.Light.Copy(),
		e.time,
		parent.Cell.Location,
		c.settings.MutationRate,
	)
	// Differentiation is a lineage state: a memory or plasma emigrant's
	// descendants stay memory or plasma.
	child.Type = parent.Cell.Type
	heavyN, lightN, err := child.Mutate(e.rng, e.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("mutate child of cell %d: %w", parent.Cell.ID, err)
	}
	child.CalcAffinity(e.tgt)
	if !child.Heavy.Functional || !child.Light.Functional {
		child.Kill()
	}
	node := lineage.NewChild(child, parent, heavyN, lightN)
	parent.AddChild(node)
	return node, nil
}

// sampleTips harvests tips on the compartment's schedule: a bounded
// draw without replacement, removed from the active population and
// frozen in the tree with the current time.
func (e *Engine) sampleTips(c *compartment) {
	if !c.samplesAt(e.time) || e.time == 0 {
		// Never remove the naive founder at time zero.
		return
	}
	limit := c.settings.SampleSize
	bound := len(c.current) / 2
	if e.time == e.endTime-1 {
		// On the final generation the full remainder may be taken.
		bound = len(c.current)
	}
	if limit > bound {
		limit = bound
	}
	if limit <= 0 {
		return
	}

	picked := e.rng.SampleWithoutReplacement(len(c.current), limit)
	taken := make(map[int]bool, limit)
	for _, idx := range picked {
		taken[idx] = true
	}
	for _, idx := range picked {
		n := c.current[idx]
		n.SampledAt = e.time
		e.sampled[n.ID()] = struct{}{}
		e.sequences = append(e.sequences, e.cellRecords(n, e.time)...)
	}
	kept := make([]*lineage.Node, 0, len(c.current)-limit)
	for i, n := range c.current {
		if !taken[i] {
			kept = append(kept, n)
		}
	}
	c.current = kept
}

func (e *Engine) recordPopulation(c *compartment) {
	rec := model.PopulationRecord{
		Time:             e.time,
		Location:         string(c.name()),
		CloneID:          e.cfg.CloneID,
		Population:       len(c.current),
		ReproducingCells: c.reproducing,
		MeanAffinity:     c.meanAffinity(),
	}
	for _, k := range c.realized {
		rec.ChildCounts[k]++
	}
	e.population = append(e.population, rec)
}

// buildTrees serializes the exported tree set. With memory-save only the
// simplified views are produced; the full tree is kept only on request.
func (e *Engine) buildTrees() []model.TreeRecord {
	var trees []model.TreeRecord
	add := func(name string, n *lineage.Node, timeTree bool) {
		if n == nil {
			return
		}
		trees = append(trees, model.TreeRecord{
			Name:    name,
			CloneID: e.cfg.CloneID,
			Newick:  lineage.WriteNewick(n, timeTree),
		})
	}

	pruned := lineage.PruneSubtree(e.root, e.sampled)
	var simplified *lineage.Node
	if pruned != nil {
		simplified = lineage.Simplify(pruned)
	}

	if !e.cfg.Settings.MemorySave {
		if e.cfg.Settings.KeepFullTree {
			add(model.TreeFull, e.root, false)
		}
		add(model.TreePruned, pruned, false)
		add(model.TreePrunedTime, pruned, true)
	}
	add(model.TreeSimplified, simplified, false)
	add(model.TreeSimplifiedTime, simplified, true)
	return trees
}

// cellRecords flattens both chains of one cell for the exporters.
func (e *Engine) cellRecords(n *lineage.Node, sampleTime int) []model.SequenceRecord {
	c := n.Cell
	out := make([]model.SequenceRecord, 0, 2)
	for _, ch := range []*chain.Chain{c.Heavy, c.Light} {
		out = append(out, model.SequenceRecord{
			SequenceID:        fmt.Sprintf("%d_%d_%s", e.cfg.CloneID, c.ID, ch.Locus),
			CellID:            fmt.Sprintf("%d_%d", e.cfg.CloneID, c.ID),
			CloneID:           e.cfg.CloneID,
			Sequence:          ch.Seq,
			SequenceAlignment: ch.GappedSeq(),
			SampleTime:        sampleTime,
			Locus:             ch.Locus.Tag(),
			Junction:          ch.Junction(),
			JunctionAA:        ch.JunctionAA(),
			JunctionLength:    ch.JunctionLength(),
			Location:          string(c.Location),
			CellType:          c.Type.String(),
			Constants:         ch.Constants,
		})
	}
	return out
}

func (e *Engine) newID() int64 {
	e.nextID++
	return e.nextID
}

func (e *Engine) gc() *compartment {
	return e.compartmentByName(model.GerminalCenter)
}

func (e *Engine) compartmentByName(name model.CompartmentName) *compartment {
	for _, c := range e.compartments {
		if c.settings.Name == name {
			return c
		}
	}
	return nil
}
