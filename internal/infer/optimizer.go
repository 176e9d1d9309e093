package infer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"graphbirl/internal/model"
	"graphbirl/internal/quality"
)

// aisGoalReward is the fixed terminal constant used by the importance
// weights, distinct from the learned reward vector.
const aisGoalReward = 100.0

// Bound is a per-dimension box constraint for the quasi-Newton strategy.
type Bound struct {
	Min float64
	Max float64
}

// QuasiNewton infers a reward by minimizing the softmax negative
// log-likelihood with L-BFGS under per-dimension box bounds. The bounds are
// enforced by projecting every evaluation point into the box, since the
// underlying method is unconstrained.
type QuasiNewton struct {
	Evaluator *quality.Evaluator
	Rand      *rand.Rand

	Beta      float64
	RewardMax float64
	// Bounds defaults to (-RewardMax, RewardMax) on every dimension.
	Bounds []Bound
	// AnalyticGradient switches from finite differences to the
	// feature-difference/importance-weight gradient.
	AnalyticGradient bool

	diag       *Diagnostics
	lastStatus string
}

// NewQuasiNewton validates the optimizer configuration.
func NewQuasiNewton(q QuasiNewton) (*QuasiNewton, error) {
	if q.Evaluator == nil {
		return nil, errors.New("quality evaluator is required")
	}
	if q.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if q.Beta <= 0 {
		return nil, errors.New("beta must be > 0")
	}
	if q.RewardMax <= 0 {
		return nil, errors.New("reward max must be > 0")
	}
	dim := q.Evaluator.Graph.RewardDim
	if len(q.Bounds) == 0 {
		q.Bounds = make([]Bound, dim)
		for i := range q.Bounds {
			q.Bounds[i] = Bound{Min: -q.RewardMax, Max: q.RewardMax}
		}
	}
	if len(q.Bounds) != dim {
		return nil, fmt.Errorf("bounds dimension mismatch: got=%d want=%d", len(q.Bounds), dim)
	}
	for i, b := range q.Bounds {
		if b.Min >= b.Max {
			return nil, fmt.Errorf("bound %d is empty: [%v, %v]", i, b.Min, b.Max)
		}
	}
	q.diag = NewDiagnostics()
	return &q, nil
}

func (q *QuasiNewton) Name() string {
	return "lbfgs"
}

// Diagnostics exposes the append-only record accumulated across calls.
func (q *QuasiNewton) Diagnostics() *Diagnostics {
	return q.diag
}

// LastStatus reports the most recent optimizer outcome. Non-convergence is a
// diagnostic, never an error.
func (q *QuasiNewton) LastStatus() string {
	return q.lastStatus
}

// FindNextReward minimizes the negative log-likelihood of the expert against
// the generated batches and returns the optimizer's final point, projected
// into the bounds.
func (q *QuasiNewton) FindNextReward(ctx context.Context, generated []model.TrajectoryBatch) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rInit := q.initializeReward()

	// Fail fast on malformed trajectory data before the solver starts; the
	// objective closure cannot return errors.
	if _, err := q.negLogLikelihood(rInit, generated); err != nil {
		return nil, err
	}

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			nll, err := q.negLogLikelihood(q.project(x), generated)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.Inf(1)
			}
			q.diag.recordLoss(nll)
			return nll
		},
	}
	if q.AnalyticGradient {
		problem.Grad = func(grad, x []float64) {
			if err := q.gradNegLogLikelihood(grad, q.project(x), generated); err != nil && evalErr == nil {
				evalErr = err
			}
		}
	} else {
		// L-BFGS requires a gradient; gonum does not estimate a missing one,
		// so supply the finite-difference gradient explicitly.
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, problem.Func, x, nil)
		}
	}

	result, err := optimize.Minimize(problem, rInit, nil, &optimize.LBFGS{})
	if evalErr != nil {
		return nil, evalErr
	}
	if result == nil {
		return nil, fmt.Errorf("minimize negative log-likelihood: %w", err)
	}
	if err != nil {
		q.lastStatus = fmt.Sprintf("did not converge: %v", err)
	} else {
		q.lastStatus = result.Status.String()
	}

	reward := q.project(result.X)
	q.diag.recordIterationReward(reward)
	return reward, nil
}

func (q *QuasiNewton) initializeReward() []float64 {
	dim := q.Evaluator.Graph.RewardDim
	r := make([]float64, dim)
	for i := range r {
		r[i] = -q.RewardMax + q.Rand.Float64()*2*q.RewardMax
	}
	return r
}

// project clamps a point into the configured box without mutating the input.
func (q *QuasiNewton) project(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for i := range out {
		if out[i] < q.Bounds[i].Min {
			out[i] = q.Bounds[i].Min
		}
		if out[i] > q.Bounds[i].Max {
			out[i] = q.Bounds[i].Max
		}
	}
	return out
}

// negLogLikelihood is the objective: logsumexp over beta-scaled quality gaps,
// the same aggregation the acceptance rule uses, evaluated at one point.
func (q *QuasiNewton) negLogLikelihood(reward []float64, generated []model.TrajectoryBatch) (float64, error) {
	qe, err := q.Evaluator.ExpertQuality(reward)
	if err != nil {
		return 0, err
	}
	qpi, err := q.Evaluator.GeneratedQuality(reward, generated)
	if err != nil {
		return 0, err
	}
	return qualityLogLikelihood(qe, qpi, q.Beta), nil
}
