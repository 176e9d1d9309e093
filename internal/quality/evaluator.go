// Package quality scores trajectories under candidate reward vectors.
package quality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"graphbirl/internal/mdp"
	"graphbirl/internal/model"
)

// Evaluator computes discounted trajectory returns over a controlled graph.
// Scores are deterministic for fixed (trajectory, reward) inputs; no caching
// happens across calls because the reward changes at every proposal.
type Evaluator struct {
	Graph *mdp.Graph
	Demos []model.Trajectory
}

// NewEvaluator validates the demonstrations against the graph.
func NewEvaluator(graph *mdp.Graph, demos []model.Trajectory) (*Evaluator, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if len(demos) == 0 {
		return nil, fmt.Errorf("at least one demonstration is required")
	}
	for i, demo := range demos {
		if len(demo.Nodes) == 0 {
			return nil, fmt.Errorf("demonstration %d is empty", i)
		}
		for _, id := range demo.Nodes {
			if !graph.HasNode(id) {
				return nil, fmt.Errorf("demonstration %d references unknown node: %s", i, id)
			}
		}
	}
	return &Evaluator{Graph: graph, Demos: demos}, nil
}

// Quality returns the discounted return of one trajectory under the reward:
// the sum over transitions of gamma^elapsed * dot(reward, phi), plus a
// discounted terminal bonus when the walk reaches a sink.
func (e *Evaluator) Quality(trajectory model.Trajectory, reward []float64) (float64, error) {
	return e.QualityWithTerminal(trajectory, reward, e.Graph.TerminalBonus)
}

// QualityWithTerminal scores a trajectory with an explicit terminal bonus,
// overriding the graph's. The importance-weighting path of the gradient
// strategy uses a fixed terminal constant distinct from the learned reward.
func (e *Evaluator) QualityWithTerminal(trajectory model.Trajectory, reward []float64, terminalBonus float64) (float64, error) {
	if len(reward) != e.Graph.RewardDim {
		return 0, fmt.Errorf("reward dimension mismatch: got=%d want=%d", len(reward), e.Graph.RewardDim)
	}

	elapsed := 0.0
	total := 0.0
	for _, id := range trajectory.Nodes {
		edges := e.Graph.OutEdges(id)
		if len(edges) == 0 {
			total += math.Pow(e.Graph.Gamma, elapsed) * terminalBonus
			break
		}
		action, err := e.Graph.NodeAction(id)
		if err != nil {
			return 0, err
		}
		if action >= len(edges) {
			return 0, fmt.Errorf("node %s: action %d out of range for %d out-edges", id, action, len(edges))
		}
		edge := edges[action]
		total += math.Pow(e.Graph.Gamma, elapsed) * floats.Dot(reward, edge.Phi)
		elapsed += edge.Duration
	}
	return total, nil
}

// FeatureAccumulation returns the discounted sum of edge features along a
// trajectory, extended by one trailing terminal-indicator dimension that
// carries the discount weight at the sink.
func (e *Evaluator) FeatureAccumulation(trajectory model.Trajectory) ([]float64, error) {
	dim := e.Graph.RewardDim
	vec := make([]float64, dim+1)
	elapsed := 0.0
	for _, id := range trajectory.Nodes {
		edges := e.Graph.OutEdges(id)
		if len(edges) == 0 {
			vec[dim] += math.Pow(e.Graph.Gamma, elapsed)
			break
		}
		action, err := e.Graph.NodeAction(id)
		if err != nil {
			return nil, err
		}
		if action >= len(edges) {
			return nil, fmt.Errorf("node %s: action %d out of range for %d out-edges", id, action, len(edges))
		}
		edge := edges[action]
		discount := math.Pow(e.Graph.Gamma, elapsed)
		for k, phi := range edge.Phi {
			vec[k] += discount * phi
		}
		elapsed += edge.Duration
	}
	return vec, nil
}

// ExpertQuality scores every expert demonstration, one value per start state.
func (e *Evaluator) ExpertQuality(reward []float64) ([]float64, error) {
	out := make([]float64, 0, len(e.Demos))
	for _, demo := range e.Demos {
		q, err := e.Quality(demo, reward)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// GeneratedQuality scores generated trajectory batches. The result is indexed
// [startState][batch]: one inner slice per demonstration start state holding
// one value per generated trajectory rooted there.
func (e *Evaluator) GeneratedQuality(reward []float64, generated []model.TrajectoryBatch) ([][]float64, error) {
	if len(generated) == 0 {
		return nil, fmt.Errorf("at least one generated trajectory batch is required")
	}
	out := make([][]float64, len(e.Demos))
	for s := range e.Demos {
		out[s] = make([]float64, 0, len(generated))
	}
	for i, batch := range generated {
		if len(batch.Trajectories) != len(e.Demos) {
			return nil, fmt.Errorf("generated batch %d start-state mismatch: got=%d want=%d", i, len(batch.Trajectories), len(e.Demos))
		}
		for s, trajectory := range batch.Trajectories {
			q, err := e.Quality(trajectory, reward)
			if err != nil {
				return nil, err
			}
			out[s] = append(out[s], q)
		}
	}
	return out, nil
}
