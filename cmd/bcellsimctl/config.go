package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"bcellsim/internal/model"
	"bcellsim/internal/settings"
)

func loadOrDefaultSettings(path string) (settings.Settings, error) {
	if path == "" {
		return settings.Default(), nil
	}
	cfg, err := loadSettingsFromConfig(path)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadSettingsFromConfig overlays a JSON config onto the defaults. A
// malformed file is rejected before the run starts: unknown keys and
// wrong-typed values are collected and reported together, never
// silently dropped.
func loadSettingsFromConfig(path string) (settings.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return settings.Settings{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return settings.Settings{}, err
	}

	cfg := settings.Default()
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	setString := func(key string, dst *string) {
		v, ok := raw[key]
		if !ok {
			return
		}
		s, ok := asString(v)
		if !ok {
			bad("config key %q must be a string", key)
			return
		}
		*dst = s
	}
	setBool := func(key string, dst *bool) {
		v, ok := raw[key]
		if !ok {
			return
		}
		b, ok := asBool(v)
		if !ok {
			bad("config key %q must be a boolean", key)
			return
		}
		*dst = b
	}
	setFloat := func(key string, dst *float64) {
		v, ok := raw[key]
		if !ok {
			return
		}
		f, ok := asFloat64(v)
		if !ok {
			bad("config key %q must be a number", key)
			return
		}
		*dst = f
	}
	setInt := func(key string, dst *int) {
		v, ok := raw[key]
		if !ok {
			return
		}
		n, ok := asInt(v)
		if !ok {
			bad("config key %q must be an integer", key)
			return
		}
		*dst = n
	}
	setInt64 := func(key string, dst *int64) {
		v, ok := raw[key]
		if !ok {
			return
		}
		n, ok := asInt64(v)
		if !ok {
			bad("config key %q must be an integer", key)
			return
		}
		*dst = n
	}

	known := map[string]bool{
		"heavy_shm_per_site": true, "light_shm_per_site": true,
		"target_mutations_heavy": true, "target_mutations_light": true,
		"selection": true, "multiplier": true,
		"cdr_dist": true, "cdr_var": true, "fwr_dist": true, "fwr_var": true,
		"migration_start": true, "differentiation_switch": true,
		"memory_save": true, "keep_full_tree": true,
		"runs": true, "workers": true, "seed": true,
		"results_dir": true, "fasta": true, "uniform": true,
		"naive_pairs": true, "store": true, "db_path": true,
		"tables": true, "compartments": true,
	}
	for key := range raw {
		if !known[key] {
			bad("unknown config key %q", key)
		}
	}

	setFloat("heavy_shm_per_site", &cfg.HeavySHMPerSite)
	setFloat("light_shm_per_site", &cfg.LightSHMPerSite)
	setInt("target_mutations_heavy", &cfg.TargetMutationsHeavy)
	setInt("target_mutations_light", &cfg.TargetMutationsLight)
	setBool("selection", &cfg.Selection)
	setFloat("multiplier", &cfg.Multiplier)
	setString("cdr_dist", &cfg.CDRDist)
	setFloat("cdr_var", &cfg.CDRVar)
	setString("fwr_dist", &cfg.FWRDist)
	setFloat("fwr_var", &cfg.FWRVar)
	setInt("migration_start", &cfg.MigrationStart)
	setInt("differentiation_switch", &cfg.DifferentiationSwitch)
	setBool("memory_save", &cfg.MemorySave)
	setBool("keep_full_tree", &cfg.KeepFullTree)
	setInt("runs", &cfg.Runs)
	setInt("workers", &cfg.Workers)
	setInt64("seed", &cfg.Seed)
	setString("results_dir", &cfg.ResultsDir)
	setBool("fasta", &cfg.WriteFasta)
	setBool("uniform", &cfg.UniformSHM)
	setString("naive_pairs", &cfg.NaivePairs)
	setString("store", &cfg.StoreKind)
	setString("db_path", &cfg.StorePath)

	if v, ok := raw["tables"]; ok {
		tables, ok := v.(map[string]any)
		if !ok {
			bad("config key %q must be an object", "tables")
		} else {
			errs = append(errs, parseTables(tables, &cfg.TableFiles)...)
		}
	}
	if v, ok := raw["compartments"]; ok {
		list, ok := v.([]any)
		if !ok {
			bad("config key %q must be an array", "compartments")
		} else {
			parsed, compErrs := parseCompartments(list, cfg.Compartments)
			errs = append(errs, compErrs...)
			if len(compErrs) == 0 {
				cfg.Compartments = parsed
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return settings.Settings{}, err
	}
	return cfg, nil
}

func parseTables(raw map[string]any, files *settings.TableFiles) []error {
	var errs []error
	fields := map[string]*string{
		"heavy_mutability":   &files.HeavyMutability,
		"light_mutability":   &files.LightMutability,
		"heavy_substitution": &files.HeavySubstitution,
		"light_substitution": &files.LightSubstitution,
	}
	for key, v := range raw {
		dst, ok := fields[key]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown table key %q", key))
			continue
		}
		s, ok := asString(v)
		if !ok {
			errs = append(errs, fmt.Errorf("table key %q must be a string", key))
			continue
		}
		*dst = s
	}
	return errs
}

// parseCompartments overlays config values onto the default compartment
// set, matched by name.
func parseCompartments(raw []any, defaults []settings.CompartmentSettings) ([]settings.CompartmentSettings, []error) {
	out := append([]settings.CompartmentSettings(nil), defaults...)
	var errs []error
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("compartment %d: entries must be objects", i))
			continue
		}
		nameStr, ok := asString(m["name"])
		if !ok {
			errs = append(errs, fmt.Errorf("compartment %d: missing a name", i))
			continue
		}
		name, err := model.ParseCompartment(nameStr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		idx := -1
		for j := range out {
			if out[j].Name == name {
				idx = j
				break
			}
		}
		if idx < 0 {
			out = append(out, settings.CompartmentSettings{Name: name})
			idx = len(out) - 1
		}
		for key, v := range m {
			switch key {
			case "name":
			case "sample_times":
				list, ok := v.([]any)
				if !ok {
					errs = append(errs, fmt.Errorf("compartment %s: sample_times must be an array", name))
					continue
				}
				times := make([]int, 0, len(list))
				valid := true
				for _, t := range list {
					n, ok := asInt(t)
					if !ok {
						errs = append(errs, fmt.Errorf("compartment %s: sample times must be integers", name))
						valid = false
						break
					}
					times = append(times, n)
				}
				if valid {
					out[idx].SampleTimes = times
				}
			case "sample_size":
				n, ok := asInt(v)
				if !ok {
					errs = append(errs, fmt.Errorf("compartment %s: sample_size must be an integer", name))
					continue
				}
				out[idx].SampleSize = n
			case "mutation_rate":
				f, ok := asFloat64(v)
				if !ok {
					errs = append(errs, fmt.Errorf("compartment %s: mutation_rate must be a number", name))
					continue
				}
				out[idx].MutationRate = f
			case "max_population":
				n, ok := asInt(v)
				if !ok {
					errs = append(errs, fmt.Errorf("compartment %s: max_population must be an integer", name))
					continue
				}
				out[idx].MaxPopulation = n
			case "migration_rate":
				f, ok := asFloat64(v)
				if !ok {
					errs = append(errs, fmt.Errorf("compartment %s: migration_rate must be a number", name))
					continue
				}
				out[idx].MigrationRate = f
			default:
				errs = append(errs, fmt.Errorf("compartment %s: unknown key %q", name, key))
			}
		}
	}
	return out, errs
}

// applyCompartmentFlags folds the compartment-shaped command line flags
// into the settings.
func applyCompartmentFlags(cfg *settings.Settings, samples, otherSamples string, antigen int, migrationRate float64, sampleSize, sampleSizeOther int) error {
	apply := func(name model.CompartmentName, fn func(*settings.CompartmentSettings)) {
		for i := range cfg.Compartments {
			if cfg.Compartments[i].Name == name {
				fn(&cfg.Compartments[i])
				return
			}
		}
	}

	if samples != "" {
		times, err := parseSchedule(samples)
		if err != nil {
			return err
		}
		// GC schedule applies everywhere unless overridden below.
		for i := range cfg.Compartments {
			cfg.Compartments[i].SampleTimes = times
		}
	}
	if otherSamples != "" {
		times, err := parseSchedule(otherSamples)
		if err != nil {
			return err
		}
		apply(model.Other, func(c *settings.CompartmentSettings) { c.SampleTimes = times })
	}
	if antigen > 0 {
		apply(model.GerminalCenter, func(c *settings.CompartmentSettings) { c.MaxPopulation = antigen })
	}
	if migrationRate > 0 {
		apply(model.GerminalCenter, func(c *settings.CompartmentSettings) { c.MigrationRate = migrationRate })
	}
	if sampleSize > 0 {
		apply(model.GerminalCenter, func(c *settings.CompartmentSettings) { c.SampleSize = sampleSize })
	}
	if sampleSizeOther > 0 {
		apply(model.Other, func(c *settings.CompartmentSettings) { c.SampleSize = sampleSizeOther })
	}
	return nil
}

// parseSchedule parses "start:stop:step" into the inclusive sample
// times it describes.
func parseSchedule(s string) ([]int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("schedule must be start:stop:step, got %q", s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid schedule component %q: %w", part, err)
		}
		nums[i] = n
	}
	start, stop, step := nums[0], nums[1], nums[2]
	if start > stop {
		return nil, fmt.Errorf("schedule start must not exceed stop")
	}
	if step <= 0 {
		return nil, fmt.Errorf("schedule step must be greater than 0")
	}
	var times []int
	for t := start; t <= stop; t += step {
		times = append(times, t)
	}
	return times, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
