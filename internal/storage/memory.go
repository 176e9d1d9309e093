package storage

import (
	"context"
	"sort"
	"sync"

	"graphbirl/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.InferenceRun
	rewards     map[string][][]float64
	diagnostics map[string]model.ChainDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.InferenceRun)
	s.rewards = make(map[string][][]float64)
	s.diagnostics = make(map[string]model.ChainDiagnostics)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveInferenceRun(_ context.Context, run model.InferenceRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetInferenceRun(_ context.Context, id string) (model.InferenceRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) SaveRewardHistory(_ context.Context, runID string, rewards [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rewards[runID] = copyRewardHistory(rewards)
	return nil
}

func (s *MemoryStore) GetRewardHistory(_ context.Context, runID string) ([][]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rewards, ok := s.rewards[runID]
	if !ok {
		return nil, false, nil
	}
	return copyRewardHistory(rewards), true, nil
}

func (s *MemoryStore) SaveChainDiagnostics(_ context.Context, runID string, diagnostics model.ChainDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diagnostics[runID] = copyChainDiagnostics(diagnostics)
	return nil
}

func (s *MemoryStore) GetChainDiagnostics(_ context.Context, runID string) (model.ChainDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return model.ChainDiagnostics{}, false, nil
	}
	return copyChainDiagnostics(diagnostics), true, nil
}

func (s *MemoryStore) ListInferenceRuns(_ context.Context) ([]model.InferenceRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.InferenceRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func copyRewardHistory(rewards [][]float64) [][]float64 {
	out := make([][]float64, 0, len(rewards))
	for _, reward := range rewards {
		out = append(out, append([]float64(nil), reward...))
	}
	return out
}

func copyChainDiagnostics(d model.ChainDiagnostics) model.ChainDiagnostics {
	return model.ChainDiagnostics{
		VersionedRecord:  d.VersionedRecord,
		LossHistory:      append([]float64(nil), d.LossHistory...),
		Trace:            copyRewardHistory(d.Trace),
		Walk:             copyRewardHistory(d.Walk),
		AcceptEvents:     append([]int(nil), d.AcceptEvents...),
		IterationRewards: copyRewardHistory(d.IterationRewards),
	}
}
