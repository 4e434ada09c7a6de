package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"modelsel/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp given to records written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeOrderRun(run model.OrderRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeOrderRun(data []byte) (model.OrderRun, error) {
	var run model.OrderRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.OrderRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.OrderRun{}, err
	}
	return run, nil
}

func EncodeInputsRun(run model.InputsRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeInputsRun(data []byte) (model.InputsRun, error) {
	var run model.InputsRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.InputsRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.InputsRun{}, err
	}
	return run, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func sortSummaries(summaries []model.RunSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
