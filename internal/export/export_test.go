package export

import (
	"bytes"
	"strings"
	"testing"

	"bcellsim/internal/model"
)

func sequenceFixtures() []model.SequenceRecord {
	return []model.SequenceRecord{
		{
			SequenceID:        "1_5_heavy",
			CellID:            "1_5",
			CloneID:           1,
			Sequence:          "ATGGCC",
			SequenceAlignment: "ATG.GCC",
			SampleTime:        25,
			Locus:             "IGH",
			Junction:          "TGTGCG",
			JunctionAA:        "CA",
			JunctionLength:    6,
			Location:          "germinal_center",
			CellType:          "naive",
			Constants:         map[string]string{"v_call": "IGHV1-2", "germline_alignment": "ATG.GCC"},
		},
		{
			SequenceID:        "1_5_light",
			CellID:            "1_5",
			CloneID:           1,
			Sequence:          "TGTCAA",
			SequenceAlignment: "TGTCAA",
			SampleTime:        25,
			Locus:             "IGK",
			Location:          "germinal_center",
			CellType:          "naive",
			Constants:         map[string]string{"j_call": "IGKJ1"},
		},
	}
}

func TestWriteAIRR(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAIRR(&buf, sequenceFixtures()); err != nil {
		t.Fatalf("WriteAIRR: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}

	// Fixed columns first, then union of constants sorted by name.
	wantHeader := "sequence_id\tsequence\tsequence_alignment\tsample_time\tlocus\tjunction\tjunction_aa\tjunction_length\tcell_id\tlocation\tcelltype\tclone_id\tgermline_alignment\tj_call\tv_call"
	if lines[0] != wantHeader {
		t.Fatalf("header = %q", lines[0])
	}

	heavy := strings.Split(lines[1], "\t")
	if heavy[0] != "1_5_heavy" || heavy[3] != "25" || heavy[4] != "IGH" {
		t.Fatalf("heavy row = %v", heavy)
	}
	if heavy[12] != "ATG.GCC" || heavy[13] != "" || heavy[14] != "IGHV1-2" {
		t.Fatalf("heavy constants = %v", heavy[12:])
	}
	light := strings.Split(lines[2], "\t")
	if light[12] != "" || light[13] != "IGKJ1" || light[14] != "" {
		t.Fatalf("light constants = %v", light[12:])
	}
}

func TestWriteFasta(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFasta(&buf, sequenceFixtures()[:1]); err != nil {
		t.Fatalf("WriteFasta: %v", err)
	}
	want := ">1_5_heavy|locus=IGH|sample_time=25|location=germinal_center|celltype=naive\nATGGCC\n"
	if buf.String() != want {
		t.Fatalf("fasta = %q", buf.String())
	}
}

func TestWriteNexus(t *testing.T) {
	trees := []model.TreeRecord{
		{Name: model.TreePruned, CloneID: 1, Newick: "((a:1)b:0);"},
		{Name: model.TreeSimplified, CloneID: 2, Newick: "((c:3)d:0);"},
	}
	var buf bytes.Buffer
	if err := WriteNexus(&buf, trees); err != nil {
		t.Fatalf("WriteNexus: %v", err)
	}
	want := "#NEXUS\nBEGIN TREES;\n\tTree pruned_tree_1 = ((a:1)b:0);\n\tTree simplified_tree_2 = ((c:3)d:0);\nEND;\n"
	if buf.String() != want {
		t.Fatalf("nexus = %q", buf.String())
	}
}

func TestWriteNexusEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNexus(&buf, nil); err != nil {
		t.Fatalf("WriteNexus: %v", err)
	}
	if buf.String() != "#NEXUS\nBEGIN TREES;\nEND;\n" {
		t.Fatalf("nexus = %q", buf.String())
	}
}

func TestWritePopulation(t *testing.T) {
	rec := model.PopulationRecord{
		Time:             7,
		Location:         "germinal_center",
		CloneID:          1,
		Population:       120,
		ReproducingCells: 80,
		MeanAffinity:     1.5,
	}
	rec.ChildCounts[0] = 40
	rec.ChildCounts[10] = 3

	var buf bytes.Buffer
	if err := WritePopulation(&buf, []model.PopulationRecord{rec}); err != nil {
		t.Fatalf("WritePopulation: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,location,clone_id,population,reproducing_cells,mean_affinity,cells_with_0_children") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "cells_with_10_children") {
		t.Fatalf("header = %q", lines[0])
	}
	want := "7,germinal_center,1,120,80,1.5,40,0,0,0,0,0,0,0,0,0,3"
	if lines[1] != want {
		t.Fatalf("row = %q", lines[1])
	}
}
