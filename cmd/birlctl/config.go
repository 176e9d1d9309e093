package main

import (
	"encoding/json"
	"fmt"
	"os"

	birlapi "graphbirl/pkg/graphbirl"
)

func loadInferRequestFromConfig(path string) (birlapi.InferRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return birlapi.InferRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return birlapi.InferRequest{}, err
	}

	var req birlapi.InferRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["problem_path"]); ok {
		req.ProblemPath = v
	}
	if v, ok := asString(raw["strategy"]); ok {
		req.Strategy = v
	}
	if v, ok := asFloat64(raw["beta"]); ok {
		req.Beta = v
	}
	if v, ok := asFloat64(raw["reward_max"]); ok {
		req.RewardMax = v
	}
	if v, ok := asFloat64(raw["step_size"]); ok {
		req.StepSize = v
	}
	if v, ok := asFloat64(raw["burn"]); ok {
		req.Burn = v
	}
	if v, ok := asInt(raw["mcmc_iter"]); ok {
		req.MCMCIter = v
	}
	if v, ok := asBool(raw["cooling"]); ok {
		req.Cooling = v
	}
	if v, ok := asString(raw["prior"]); ok {
		req.Prior = v
	}
	if v, ok := asInt(raw["outer_iter"]); ok {
		req.OuterIter = v
	}
	if v, ok := asFloat64(raw["tolerance"]); ok {
		req.Tolerance = v
	}
	if v, ok := asInt(raw["batches"]); ok {
		req.Batches = v
	}
	if v, ok := asInt(raw["max_depth"]); ok {
		req.MaxDepth = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asBounds(raw["bounds"]); ok {
		req.Bounds = v
	}
	if v, ok := asBool(raw["analytic_gradient"]); ok {
		req.AnalyticGradient = v
	}
	if v, ok := asBool(raw["render_charts"]); ok {
		req.RenderCharts = v
	}

	return req, nil
}

func loadOrDefaultInferRequest(configPath string) (birlapi.InferRequest, error) {
	if configPath == "" {
		return birlapi.InferRequest{}, nil
	}
	req, err := loadInferRequestFromConfig(configPath)
	if err != nil {
		return birlapi.InferRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *birlapi.InferRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "problem":
			req.ProblemPath = v.(string)
		case "strategy":
			req.Strategy = v.(string)
		case "beta":
			req.Beta = v.(float64)
		case "reward-max":
			req.RewardMax = v.(float64)
		case "step-size":
			req.StepSize = v.(float64)
		case "burn":
			req.Burn = v.(float64)
		case "mcmc-iter":
			req.MCMCIter = v.(int)
		case "cooling":
			req.Cooling = v.(bool)
		case "prior":
			req.Prior = v.(string)
		case "outer-iter":
			req.OuterIter = v.(int)
		case "tolerance":
			req.Tolerance = v.(float64)
		case "batches":
			req.Batches = v.(int)
		case "max-depth":
			req.MaxDepth = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "analytic-grad":
			req.AnalyticGradient = v.(bool)
		case "charts":
			req.RenderCharts = v.(bool)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

// asBounds reads a JSON array of [min, max] pairs. A malformed entry drops
// the whole key, like the other coercions.
func asBounds(v any) ([][2]float64, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][2]float64, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		lo, okLo := asFloat64(pair[0])
		hi, okHi := asFloat64(pair[1])
		if !okLo || !okHi {
			return nil, false
		}
		out = append(out, [2]float64{lo, hi})
	}
	return out, true
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
