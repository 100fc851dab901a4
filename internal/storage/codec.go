package storage

import (
	"encoding/json"

	"bcellsim/internal/model"
)

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSequences(records []model.SequenceRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeSequences(data []byte) ([]model.SequenceRecord, error) {
	var records []model.SequenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func EncodePopulation(records []model.PopulationRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodePopulation(data []byte) ([]model.PopulationRecord, error) {
	var records []model.PopulationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func EncodeTrees(trees []model.TreeRecord) ([]byte, error) {
	return json.Marshal(trees)
}

func DecodeTrees(data []byte) ([]model.TreeRecord, error) {
	var trees []model.TreeRecord
	if err := json.Unmarshal(data, &trees); err != nil {
		return nil, err
	}
	return trees, nil
}
