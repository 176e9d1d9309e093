// Package infer implements reward inference for Bayesian IRL on controlled
// graphs: a PolicyWalk MCMC sampler and a bounded quasi-Newton alternative,
// both exposed through the same strategy capability.
package infer

import (
	"context"

	"graphbirl/internal/model"
)

// RewardInferenceStrategy computes a new reward estimate that explains the
// expert demonstrations better than the supplied generated trajectories.
// Each call is an atomic unit of work bound to one batch set; strategies are
// not safe for concurrent use.
type RewardInferenceStrategy interface {
	Name() string
	FindNextReward(ctx context.Context, generated []model.TrajectoryBatch) ([]float64, error)
}

// TrajectoryGenerator produces generated trajectory batches under a reward.
// The planner behind it is a collaborator; the outer loop only needs the
// batch shape.
type TrajectoryGenerator interface {
	Generate(ctx context.Context, reward []float64) ([]model.TrajectoryBatch, error)
}

// RewardProposal draws a new reward candidate from the current one without
// mutating it.
type RewardProposal interface {
	Propose(current []float64) []float64
}
