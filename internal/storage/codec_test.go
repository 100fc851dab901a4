package storage

import (
	"testing"

	"bcellsim/internal/model"
)

func TestCodecSequencesRoundTrip(t *testing.T) {
	input := []model.SequenceRecord{{
		SequenceID:     "1_9_heavy",
		CellID:         "1_9",
		CloneID:        1,
		Sequence:       "ATG",
		SampleTime:     75,
		Locus:          "IGH",
		JunctionLength: 45,
		Constants:      map[string]string{"c_call": "IGHM"},
	}}

	payload, err := EncodeSequences(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeSequences(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(output) != 1 || output[0].SequenceID != input[0].SequenceID {
		t.Fatalf("unexpected records: %+v", output)
	}
	if output[0].Constants["c_call"] != "IGHM" {
		t.Fatalf("constants lost in round trip: %+v", output[0].Constants)
	}
}

func TestCodecRunRejectsGarbage(t *testing.T) {
	if _, err := DecodeRun([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCodecPopulationPreservesChildCounts(t *testing.T) {
	input := []model.PopulationRecord{{Time: 1, Location: "germinal_center", Population: 10}}
	input[0].ChildCounts[2] = 5
	input[0].ChildCounts[10] = 1

	payload, err := EncodePopulation(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodePopulation(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output[0].ChildCounts[2] != 5 || output[0].ChildCounts[10] != 1 {
		t.Fatalf("child counts lost: %+v", output[0].ChildCounts)
	}
}
