package shm

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TableFiles names the four CSV tables of a non-uniform model.
type TableFiles struct {
	HeavyMutability   string
	LightMutability   string
	HeavySubstitution string
	LightSubstitution string
}

// LoadFiles builds a model from the four CSV tables.
func LoadFiles(files TableFiles) (*Model, error) {
	m := &Model{}
	type load struct {
		path  string
		locus Locus
		sub   bool
	}
	loads := []load{
		{files.HeavyMutability, Heavy, false},
		{files.LightMutability, Light, false},
		{files.HeavySubstitution, Heavy, true},
		{files.LightSubstitution, Light, true},
	}
	for _, l := range loads {
		f, err := os.Open(l.path)
		if err != nil {
			return nil, fmt.Errorf("open mutation table: %w", err)
		}
		if l.sub {
			m.substitution[l.locus], err = readSubstitutionTable(f)
		} else {
			m.mutability[l.locus], err = readMutabilityTable(f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read mutation table %s: %w", l.path, err)
		}
	}
	return m, nil
}

// readMutabilityTable parses a CSV with Fivemer and Mutability columns.
// Empty cells count as zero mutability.
func readMutabilityTable(r io.Reader) (map[string]float64, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	kmerCol, err := findColumn(header, "Fivemer")
	if err != nil {
		return nil, err
	}
	valCol, err := findColumn(header, "Mutability")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for i, row := range rows {
		v, err := parseCell(row[valCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out[row[kmerCol]] = v
	}
	return out, nil
}

// readSubstitutionTable parses a CSV with Fivemer plus A,C,G,T columns.
func readSubstitutionTable(r io.Reader) (map[string][4]float64, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	kmerCol, err := findColumn(header, "Fivemer")
	if err != nil {
		return nil, err
	}
	var baseCols [4]int
	for i, base := range []string{"A", "C", "G", "T"} {
		col, err := findColumn(header, base)
		if err != nil {
			return nil, err
		}
		baseCols[i] = col
	}
	out := make(map[string][4]float64, len(rows))
	for i, row := range rows {
		var p [4]float64
		for j, col := range baseCols {
			v, err := parseCell(row[col])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			p[j] = v
		}
		out[row[kmerCol]] = p
	}
	return out, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty table")
	}
	return records[0], records[1:], nil
}

func findColumn(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("missing column %q", name)
}

// parseCell treats empty and NaN cells as zero, matching the table
// preprocessing the model data ships with.
func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric cell %q", cell)
	}
	return v, nil
}
