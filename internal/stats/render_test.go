package stats

import (
	"os"
	"path/filepath"
	"testing"

	"graphbirl/internal/model"
)

func TestRenderTraceChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.html")
	trace := [][]float64{{0.1, 0.9}, {0.2, 0.8}, {0.3, 0.7}}

	if err := RenderTraceChart(path, trace, 1); err != nil {
		t.Fatalf("render trace: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat chart: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty chart file")
	}
}

func TestRenderTraceChartEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.html")
	if err := RenderTraceChart(path, nil, 1); err == nil {
		t.Fatal("expected error for empty trace")
	}
}

func TestRenderLossChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.html")
	if err := RenderLossChart(path, []float64{10, 8, 6.5}); err != nil {
		t.Fatalf("render loss: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat chart: %v", err)
	}
}

func TestRenderAcceptanceChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accept.html")
	if err := RenderAcceptanceChart(path, []int{1, 3, 7}, 10, 5); err != nil {
		t.Fatalf("render acceptance: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat chart: %v", err)
	}
}

func TestRenderAcceptanceChartNoSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accept.html")
	if err := RenderAcceptanceChart(path, nil, 0, 5); err == nil {
		t.Fatal("expected error for an empty chain")
	}
}

func TestRenderRunCharts(t *testing.T) {
	runDir := t.TempDir()
	diagnostics := model.ChainDiagnostics{
		LossHistory:  []float64{9, 7},
		Trace:        [][]float64{{0.1}, {0.2}},
		Walk:         [][]float64{{0.15}, {0.25}},
		AcceptEvents: []int{2},
	}
	if err := RenderRunCharts(runDir, diagnostics, 1); err != nil {
		t.Fatalf("render run charts: %v", err)
	}
	for _, file := range []string{"trace.html", "loss.html", "accept.html"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected %s: %v", file, err)
		}
	}
}

func TestChainStepHorizon(t *testing.T) {
	diagnostics := model.ChainDiagnostics{
		Walk:         [][]float64{{0.1}, {0.2}},
		AcceptEvents: []int{5},
	}
	// Accept events can reach past the post-burn walk records.
	if got := chainStepHorizon(diagnostics); got != 5 {
		t.Fatalf("unexpected horizon: got=%d want=5", got)
	}
	if got := chainStepHorizon(model.ChainDiagnostics{}); got != 0 {
		t.Fatalf("expected zero horizon for an empty record, got=%d", got)
	}
}
