package storage

import (
	"context"

	"graphbirl/internal/model"
)

// Store defines transaction-like persistence operations for reward-inference
// runs and their chain diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveInferenceRun(ctx context.Context, run model.InferenceRun) error
	GetInferenceRun(ctx context.Context, id string) (model.InferenceRun, bool, error)
	SaveRewardHistory(ctx context.Context, runID string, rewards [][]float64) error
	GetRewardHistory(ctx context.Context, runID string) ([][]float64, bool, error)
	SaveChainDiagnostics(ctx context.Context, runID string, diagnostics model.ChainDiagnostics) error
	GetChainDiagnostics(ctx context.Context, runID string) (model.ChainDiagnostics, bool, error)
	ListInferenceRuns(ctx context.Context) ([]model.InferenceRun, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
