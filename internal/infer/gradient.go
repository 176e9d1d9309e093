package infer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"graphbirl/internal/model"
)

// gradNegLogLikelihood assembles the analytic gradient: per start state, a
// feature-difference matrix (one row per reward dimension plus a trailing
// terminal-bonus feature) multiplied by annealed-importance-style softmax
// weights over the generated batches, summed across start states. The
// terminal feature row is dropped from the returned gradient, which only
// covers the learned reward dimensions.
func (q *QuasiNewton) gradNegLogLikelihood(grad, reward []float64, generated []model.TrajectoryBatch) error {
	dim := q.Evaluator.Graph.RewardDim
	if len(grad) != dim {
		return fmt.Errorf("gradient dimension mismatch: got=%d want=%d", len(grad), dim)
	}

	total := make([]float64, dim+1)
	for s := range q.Evaluator.Demos {
		diff, err := q.diffFeatureMatrix(s, generated)
		if err != nil {
			return err
		}
		weights, err := q.importanceWeights(s, reward, generated)
		if err != nil {
			return err
		}
		var contribution mat.VecDense
		contribution.MulVec(diff, mat.NewVecDense(len(weights), weights))
		for k := 0; k <= dim; k++ {
			total[k] += contribution.AtVec(k)
		}
	}
	copy(grad, total[:dim])
	return nil
}

// diffFeatureMatrix builds the (dim+1) x batches matrix whose column i is the
// discounted feature accumulation of generated batch i at this start state
// minus the expert's.
func (q *QuasiNewton) diffFeatureMatrix(startState int, generated []model.TrajectoryBatch) (*mat.Dense, error) {
	dim := q.Evaluator.Graph.RewardDim
	expert, err := q.Evaluator.FeatureAccumulation(q.Evaluator.Demos[startState])
	if err != nil {
		return nil, err
	}

	diff := mat.NewDense(dim+1, len(generated), nil)
	for i, batch := range generated {
		if len(batch.Trajectories) != len(q.Evaluator.Demos) {
			return nil, fmt.Errorf("generated batch %d start-state mismatch: got=%d want=%d", i, len(batch.Trajectories), len(q.Evaluator.Demos))
		}
		accumulated, err := q.Evaluator.FeatureAccumulation(batch.Trajectories[startState])
		if err != nil {
			return nil, err
		}
		for k := 0; k <= dim; k++ {
			diff.Set(k, i, accumulated[k]-expert[k])
		}
	}
	return diff, nil
}

// importanceWeights computes the softmax-style correction over generated
// batches at one start state, anchored on the expert's quality and a fixed
// terminal reward constant.
func (q *QuasiNewton) importanceWeights(startState int, reward []float64, generated []model.TrajectoryBatch) ([]float64, error) {
	qExpert, err := q.Evaluator.QualityWithTerminal(q.Evaluator.Demos[startState], reward, aisGoalReward)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, len(generated))
	total := 0.0
	for i, batch := range generated {
		qGenerated, err := q.Evaluator.QualityWithTerminal(batch.Trajectories[startState], reward, aisGoalReward)
		if err != nil {
			return nil, err
		}
		weights[i] = math.Exp(qGenerated - qExpert)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= 1 + total
	}
	return weights, nil
}
