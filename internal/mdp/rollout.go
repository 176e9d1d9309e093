package mdp

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"graphbirl/internal/model"
)

// BoltzmannRollout generates trajectories by walking the graph from each
// start state, sampling the next edge with probability proportional to
// exp(beta * dot(reward, phi)). It produces the batch shape consumed by the
// reward-inference strategies: one trajectory per start state, per batch.
type BoltzmannRollout struct {
	Graph       *Graph
	StartStates []string
	Beta        float64
	Batches     int
	MaxDepth    int
	Rand        *rand.Rand
}

// Generate rolls out Batches trajectory sets under the given reward.
func (b *BoltzmannRollout) Generate(ctx context.Context, reward []float64) ([]model.TrajectoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if b.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(b.StartStates) == 0 {
		return nil, fmt.Errorf("at least one start state is required")
	}
	if len(reward) != b.Graph.RewardDim {
		return nil, fmt.Errorf("reward dimension mismatch: got=%d want=%d", len(reward), b.Graph.RewardDim)
	}
	batches := b.Batches
	if batches <= 0 {
		batches = 1
	}
	maxDepth := b.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 100
	}

	out := make([]model.TrajectoryBatch, 0, batches)
	for i := 0; i < batches; i++ {
		trajectories := make([]model.Trajectory, 0, len(b.StartStates))
		for _, start := range b.StartStates {
			trajectory, err := b.rollout(start, reward, maxDepth)
			if err != nil {
				return nil, err
			}
			trajectories = append(trajectories, trajectory)
		}
		out = append(out, model.TrajectoryBatch{Trajectories: trajectories})
	}
	return out, nil
}

func (b *BoltzmannRollout) rollout(start string, reward []float64, maxDepth int) (model.Trajectory, error) {
	if !b.Graph.HasNode(start) {
		return model.Trajectory{}, fmt.Errorf("start state not registered: %s", start)
	}
	nodes := []string{start}
	current := start
	for depth := 0; depth < maxDepth; depth++ {
		edges := b.Graph.OutEdges(current)
		if len(edges) == 0 {
			break
		}
		idx, err := b.sampleEdge(edges, reward)
		if err != nil {
			return model.Trajectory{}, err
		}
		current = edges[idx].To
		nodes = append(nodes, current)
	}
	return model.Trajectory{Nodes: nodes}, nil
}

func (b *BoltzmannRollout) sampleEdge(edges []Edge, reward []float64) (int, error) {
	scores := make([]float64, len(edges))
	for i, edge := range edges {
		scores[i] = b.Beta * floats.Dot(reward, edge.Phi)
	}
	// Stable softmax: shift by the max before exponentiating.
	maxScore := floats.Max(scores)
	total := 0.0
	for i := range scores {
		scores[i] = math.Exp(scores[i] - maxScore)
		total += scores[i]
	}
	u := b.Rand.Float64() * total
	acc := 0.0
	for i, weight := range scores {
		acc += weight
		if u < acc {
			return i, nil
		}
	}
	return len(edges) - 1, nil
}
