package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"stockproj/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp returns the version header written by this build.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeScenario(s model.Scenario) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeScenario(data []byte) (model.Scenario, error) {
	var scenario model.Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return model.Scenario{}, err
	}
	if err := checkVersion(scenario.VersionedRecord); err != nil {
		return model.Scenario{}, err
	}
	return scenario, nil
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSensitivity(records []model.SensitivityRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeSensitivity(data []byte) ([]model.SensitivityRecord, error) {
	var records []model.SensitivityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("schema=%d codec=%d: %w", v.SchemaVersion, v.CodecVersion, ErrVersionMismatch)
	}
	return nil
}

// sortRuns orders runs newest first; equal timestamps fall back to id.
func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
