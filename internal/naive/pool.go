// Package naive supplies the founding heavy/light pairs a run starts
// from: either a CSV pool sampled per run, or one explicit pair.
package naive

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"bcellsim/internal/randx"
)

// StartChain is one half of a founder pair. Aligned is the gapped
// germline view; Constants carries every extra annotation column through
// to the sequence records unmodified.
type StartChain struct {
	Aligned    string
	CDR3Length int
	Junction   string
	Constants  map[string]string
}

// Pair is one founding heavy/light combination.
type Pair struct {
	Heavy StartChain
	Light StartChain
}

// Pool holds the loaded founder pairs.
type Pool struct {
	pairs []Pair
}

// MinAlignedLength is the aligned length below which the canonical
// numbering offsets stop covering CDR3; shorter pairs are accepted but
// reported to the caller as suspect.
const MinAlignedLength = 312

// FromPair wraps a single explicit pair.
func FromPair(p Pair) *Pool {
	return &Pool{pairs: []Pair{p}}
}

// LoadFile reads a founder-pair CSV. Each chain needs <prefix>_aligned,
// <prefix>_cdr3 and <prefix>_junction columns; every other
// <prefix>_-prefixed column becomes a carried-through constant, plus a
// germline_alignment constant set to the aligned view itself. Returns
// the pool and the list of suspect (short) row warnings.
func LoadFile(path string) (*Pool, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open naive pairs: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Pool, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read naive pairs: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("naive pairs file has no data rows")
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	var warnings []string
	pool := &Pool{pairs: make([]Pair, 0, len(records)-1)}
	for rowIdx, row := range records[1:] {
		heavy, err := chainFromRow(cols, row, "heavy")
		if err != nil {
			return nil, nil, fmt.Errorf("naive pairs row %d: %w", rowIdx+2, err)
		}
		light, err := chainFromRow(cols, row, "light")
		if err != nil {
			return nil, nil, fmt.Errorf("naive pairs row %d: %w", rowIdx+2, err)
		}
		if len(heavy.Aligned) < MinAlignedLength || len(light.Aligned) < MinAlignedLength {
			warnings = append(warnings, fmt.Sprintf("naive pairs row %d: aligned sequence shorter than %d", rowIdx+2, MinAlignedLength))
		}
		pool.pairs = append(pool.pairs, Pair{Heavy: heavy, Light: light})
	}
	return pool, warnings, nil
}

func chainFromRow(cols map[string]int, row []string, prefix string) (StartChain, error) {
	get := func(name string) (string, error) {
		idx, ok := cols[prefix+"_"+name]
		if !ok || idx >= len(row) {
			return "", fmt.Errorf("missing column %s_%s", prefix, name)
		}
		return row[idx], nil
	}
	aligned, err := get("aligned")
	if err != nil {
		return StartChain{}, err
	}
	cdr3, err := get("cdr3")
	if err != nil {
		return StartChain{}, err
	}
	junction, err := get("junction")
	if err != nil {
		return StartChain{}, err
	}

	constants := map[string]string{"germline_alignment": aligned}
	for name, idx := range cols {
		if !strings.HasPrefix(name, prefix+"_") || idx >= len(row) {
			continue
		}
		field := strings.TrimPrefix(name, prefix+"_")
		switch field {
		case "aligned", "cdr3", "junction":
			continue
		}
		constants[field] = row[idx]
	}

	return StartChain{
		Aligned:    aligned,
		CDR3Length: len(cdr3) / 3,
		Junction:   junction,
		Constants:  constants,
	}, nil
}

// Len reports the number of loaded pairs.
func (p *Pool) Len() int {
	return len(p.pairs)
}

// Sample draws one founder pair uniformly.
func (p *Pool) Sample(rng *randx.Rand) Pair {
	return p.pairs[rng.Intn(len(p.pairs))]
}
