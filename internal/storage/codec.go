package storage

import (
	"encoding/json"
	"errors"

	"graphbirl/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeInferenceRun(run model.InferenceRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeInferenceRun(data []byte) (model.InferenceRun, error) {
	var run model.InferenceRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.InferenceRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.InferenceRun{}, err
	}
	return run, nil
}

func EncodeRewardHistory(rewards [][]float64) ([]byte, error) {
	return json.Marshal(rewards)
}

func DecodeRewardHistory(data []byte) ([][]float64, error) {
	var rewards [][]float64
	if err := json.Unmarshal(data, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

func EncodeChainDiagnostics(diagnostics model.ChainDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeChainDiagnostics(data []byte) (model.ChainDiagnostics, error) {
	var diagnostics model.ChainDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return model.ChainDiagnostics{}, err
	}
	if err := checkVersion(diagnostics.VersionedRecord); err != nil {
		return model.ChainDiagnostics{}, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
