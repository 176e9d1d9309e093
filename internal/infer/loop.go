package infer

import (
	"context"
	"errors"
	"math"

	"graphbirl/internal/model"
)

// IterativeBIRL alternates reward inference with trajectory regeneration:
// each outer iteration asks the strategy for a reward that explains the
// expert better than the current generated batches, then regenerates batches
// under that reward. Stops on the iteration budget or when the reward
// estimate moves less than Tolerance in L2 norm.
type IterativeBIRL struct {
	Strategy  RewardInferenceStrategy
	Generator TrajectoryGenerator
	MaxIter   int
	Tolerance float64
}

// LoopResult carries the final estimate and the per-iteration rewards of one
// Run call.
type LoopResult struct {
	Reward           []float64
	IterationRewards [][]float64
	Iterations       int
	Converged        bool
}

// Run executes up to MaxIter outer iterations starting from the supplied
// generated batches. An inference failure aborts the current iteration with
// no partial reward update.
func (l *IterativeBIRL) Run(ctx context.Context, generated []model.TrajectoryBatch) (LoopResult, error) {
	if l.Strategy == nil {
		return LoopResult{}, errors.New("reward inference strategy is required")
	}
	if l.Generator == nil {
		return LoopResult{}, errors.New("trajectory generator is required")
	}
	if l.MaxIter < 1 {
		return LoopResult{}, errors.New("max iterations must be >= 1")
	}
	if len(generated) == 0 {
		return LoopResult{}, errors.New("initial generated batches are required")
	}

	result := LoopResult{}
	var previous []float64
	for it := 0; it < l.MaxIter; it++ {
		if err := ctx.Err(); err != nil {
			return LoopResult{}, err
		}
		reward, err := l.Strategy.FindNextReward(ctx, generated)
		if err != nil {
			return LoopResult{}, err
		}
		result.Reward = reward
		result.IterationRewards = append(result.IterationRewards, append([]float64(nil), reward...))
		result.Iterations = it + 1

		if previous != nil && l.Tolerance > 0 && rewardDistance(previous, reward) < l.Tolerance {
			result.Converged = true
			break
		}
		previous = reward

		if it+1 < l.MaxIter {
			generated, err = l.Generator.Generate(ctx, reward)
			if err != nil {
				return LoopResult{}, err
			}
		}
	}
	return result, nil
}

func rewardDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
