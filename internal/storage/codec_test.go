package storage

import (
	"errors"
	"reflect"
	"testing"

	"graphbirl/internal/model"
)

func TestInferenceRunCodecRoundTrip(t *testing.T) {
	input := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
		Strategy:        "lbfgs",
		RewardDim:       4,
		Beta:            0.9,
		RewardMax:       1,
		StepSize:        0.05,
		Burn:            40,
		MCMCIter:        500,
		Cooling:         true,
		OuterIter:       3,
		Seed:            42,
		CreatedAtUTC:    "2026-08-23T10:00:00Z",
	}

	encoded, err := EncodeInferenceRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeInferenceRun(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", decoded, input)
	}
}

func TestInferenceRunCodecVersionMismatch(t *testing.T) {
	input := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion + 1},
		ID:              "run-1",
	}
	encoded, err := EncodeInferenceRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodeInferenceRun(encoded)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestRewardHistoryCodecRoundTrip(t *testing.T) {
	input := [][]float64{{0.1, 0.4}, {0.8, -0.2}}
	encoded, err := EncodeRewardHistory(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRewardHistory(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("decoded history mismatch: got=%+v want=%+v", decoded, input)
	}
}

func TestChainDiagnosticsCodecRoundTrip(t *testing.T) {
	input := model.ChainDiagnostics{
		VersionedRecord:  model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		LossHistory:      []float64{10.5, 8.2, 7.9},
		Trace:            [][]float64{{0.1, 0.2}, {0.11, 0.19}},
		Walk:             [][]float64{{0.2, 0.2}, {0.12, 0.18}},
		AcceptEvents:     []int{1, 4, 6},
		IterationRewards: [][]float64{{0.11, 0.19}},
	}
	encoded, err := EncodeChainDiagnostics(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeChainDiagnostics(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", decoded, input)
	}
}

func TestChainDiagnosticsCodecVersionMismatch(t *testing.T) {
	input := model.ChainDiagnostics{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
	}
	encoded, err := EncodeChainDiagnostics(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodeChainDiagnostics(encoded)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}
