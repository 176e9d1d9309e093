//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"graphbirl/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "graphbirl.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
		Strategy:        "policywalk",
		RewardDim:       2,
		Beta:            0.95,
		RewardMax:       1,
		StepSize:        0.1,
		Burn:            50,
		MCMCIter:        300,
	}
	if err := store.SaveInferenceRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loadedRun, ok, err := store.GetInferenceRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if loadedRun.Strategy != run.Strategy || loadedRun.MCMCIter != run.MCMCIter {
		t.Fatalf("unexpected run loaded: %+v", loadedRun)
	}

	history := [][]float64{{0.5, 0.7}, {0.6, 0.65}}
	if err := store.SaveRewardHistory(ctx, run.ID, history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	loadedHistory, ok, err := store.GetRewardHistory(ctx, run.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected reward history run-1")
	}
	if len(loadedHistory) != len(history) || loadedHistory[1][0] != history[1][0] {
		t.Fatalf("unexpected history loaded: %+v", loadedHistory)
	}

	diagnostics := model.ChainDiagnostics{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		LossHistory:     []float64{9.0, 8.5},
		Trace:           [][]float64{{0.5, 0.7}},
		Walk:            [][]float64{{0.55, 0.7}},
		AcceptEvents:    []int{2},
	}
	if err := store.SaveChainDiagnostics(ctx, run.ID, diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetChainDiagnostics(ctx, run.ID)
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected diagnostics run-1")
	}
	if len(loadedDiagnostics.LossHistory) != 2 || loadedDiagnostics.AcceptEvents[0] != 2 {
		t.Fatalf("unexpected diagnostics loaded: %+v", loadedDiagnostics)
	}

	runs, err := store.ListInferenceRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("unexpected run list: %+v", runs)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "graphbirl.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	run := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "persisted-run",
	}
	if err := first.SaveInferenceRun(ctx, run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetInferenceRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.ID != run.ID {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}

func TestSQLiteStoreReset(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "graphbirl.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
	}
	if err := store.SaveInferenceRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	_, ok, err := store.GetInferenceRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if ok {
		t.Fatal("expected run to be removed by reset")
	}
}
