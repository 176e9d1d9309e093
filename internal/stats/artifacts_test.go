package stats

import (
	"os"
	"path/filepath"
	"testing"

	"graphbirl/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:     runID,
			Strategy:  "policywalk",
			RewardDim: 2,
			Beta:      0.95,
			RewardMax: 1,
			StepSize:  0.1,
			Burn:      50,
			MCMCIter:  200,
			OuterIter: 1,
			Batches:   5,
			MaxDepth:  64,
			Seed:      7,
		},
		FinalReward:      []float64{0.4, -0.1},
		IterationRewards: [][]float64{{0.3, 0.0}, {0.4, -0.1}},
		Diagnostics: model.ChainDiagnostics{
			LossHistory:  []float64{12.5, 9.1},
			Trace:        [][]float64{{0.3, 0.0}, {0.35, -0.05}},
			Walk:         [][]float64{{0.4, 0.0}, {0.35, -0.1}},
			AcceptEvents: []int{3, 8},
		},
	}
}

func TestWriteRunArtifactsRoundTrip(t *testing.T) {
	baseDir := t.TempDir()

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted config")
	}
	if cfg.Strategy != "policywalk" || cfg.MCMCIter != 200 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	diagnostics, ok, err := ReadDiagnostics(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted diagnostics")
	}
	if len(diagnostics.Trace) != 2 || diagnostics.AcceptEvents[1] != 8 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}

	series, ok, err := ReadRewardSeries(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read reward series: %v", err)
	}
	if !ok {
		t.Fatal("expected reward series")
	}
	if len(series) != 2 || series[1][0] != 0.4 {
		t.Fatalf("unexpected reward series: %+v", series)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	if err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	baseDir := t.TempDir()

	first := RunIndexEntry{RunID: "run-1", Strategy: "policywalk", CreatedAtUTC: "2026-08-23T10:00:00Z"}
	second := RunIndexEntry{RunID: "run-2", Strategy: "lbfgs", CreatedAtUTC: "2026-08-23T11:00:00Z"}
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got=%d", len(entries))
	}
	if entries[0].RunID != "run-2" {
		t.Fatalf("expected newest first, got: %+v", entries)
	}

	// Re-appending the same run id must replace, not duplicate.
	first.FinalLoss = 3.5
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index again: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after replace, got=%d", len(entries))
	}
	for _, entry := range entries {
		if entry.RunID == "run-1" && entry.FinalLoss != 3.5 {
			t.Fatalf("expected replaced entry, got: %+v", entry)
		}
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := t.TempDir()

	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	dst, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"config.json", "reward_history.json", "diagnostics.json", "reward_series.csv"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("expected exported %s: %v", file, err)
		}
	}
}

func TestExportRunArtifactsMissingRun(t *testing.T) {
	_, err := ExportRunArtifacts(t.TempDir(), "missing", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing run")
	}
}
