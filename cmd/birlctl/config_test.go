package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadInferRequestFromConfig(t *testing.T) {
	path := writeConfig(t, `{
		"run_id": "run-7",
		"problem_path": "problems/line.json",
		"strategy": "policywalk",
		"beta": 0.9,
		"reward_max": 1,
		"step_size": 0.05,
		"burn": 40,
		"mcmc_iter": 250,
		"cooling": true,
		"prior": "gaussian",
		"outer_iter": 3,
		"tolerance": 0.001,
		"batches": 8,
		"max_depth": 64,
		"seed": 42,
		"bounds": [[-0.5, 0.5]],
		"analytic_gradient": true,
		"render_charts": true
	}`)

	req, err := loadInferRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.RunID != "run-7" || req.ProblemPath != "problems/line.json" {
		t.Fatalf("unexpected identity fields: %+v", req)
	}
	if req.Strategy != "policywalk" || req.Prior != "gaussian" {
		t.Fatalf("unexpected strategy fields: %+v", req)
	}
	if req.Beta != 0.9 || req.StepSize != 0.05 || req.Burn != 40 {
		t.Fatalf("unexpected chain fields: %+v", req)
	}
	if req.MCMCIter != 250 || req.OuterIter != 3 || req.Batches != 8 || req.MaxDepth != 64 {
		t.Fatalf("unexpected count fields: %+v", req)
	}
	if req.Seed != 42 {
		t.Fatalf("unexpected seed: %d", req.Seed)
	}
	if !req.Cooling || !req.AnalyticGradient || !req.RenderCharts {
		t.Fatalf("unexpected bool fields: %+v", req)
	}
	if req.Tolerance != 0.001 {
		t.Fatalf("unexpected tolerance: %f", req.Tolerance)
	}
	if len(req.Bounds) != 1 || req.Bounds[0] != [2]float64{-0.5, 0.5} {
		t.Fatalf("unexpected bounds: %+v", req.Bounds)
	}
}

func TestLoadInferRequestBoundsMalformed(t *testing.T) {
	path := writeConfig(t, `{"bounds": [[-0.5, 0.5], [1]], "seed": 7}`)

	req, err := loadInferRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.Bounds != nil {
		t.Fatalf("expected malformed bounds to be dropped, got: %+v", req.Bounds)
	}
	if req.Seed != 7 {
		t.Fatalf("unexpected seed: %d", req.Seed)
	}
}

func TestLoadInferRequestIgnoresUnknownTypes(t *testing.T) {
	path := writeConfig(t, `{"strategy": 3, "mcmc_iter": "many", "seed": 7}`)

	req, err := loadInferRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.Strategy != "" {
		t.Fatalf("expected mistyped strategy to be ignored, got: %s", req.Strategy)
	}
	if req.MCMCIter != 0 {
		t.Fatalf("expected mistyped mcmc_iter to be ignored, got: %d", req.MCMCIter)
	}
	if req.Seed != 7 {
		t.Fatalf("unexpected seed: %d", req.Seed)
	}
}

func TestOverrideFromFlags(t *testing.T) {
	path := writeConfig(t, `{"strategy": "policywalk", "mcmc_iter": 100, "seed": 1}`)
	req, err := loadInferRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{"strategy": true, "seed": true}, map[string]any{
		"strategy": "lbfgs",
		"seed":     int64(99),
		"mcmc-iter": 9000, // not in the set map, must not apply
	})

	if req.Strategy != "lbfgs" {
		t.Fatalf("expected strategy override, got: %s", req.Strategy)
	}
	if req.Seed != 99 {
		t.Fatalf("expected seed override, got: %d", req.Seed)
	}
	if req.MCMCIter != 100 {
		t.Fatalf("expected mcmc_iter untouched, got: %d", req.MCMCIter)
	}
}

func TestLoadOrDefaultInferRequestEmptyPath(t *testing.T) {
	req, err := loadOrDefaultInferRequest("")
	if err != nil {
		t.Fatalf("expected no error for empty path: %v", err)
	}
	if req.Strategy != "" || req.MCMCIter != 0 {
		t.Fatalf("expected zero request, got: %+v", req)
	}
}
