package infer

import (
	"context"
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"graphbirl/internal/model"
	"graphbirl/internal/quality"
)

// ProgressFn receives periodic chain progress (diagnostic only).
type ProgressFn func(step int, proposal, runningMean []float64)

// PolicyWalk infers a reward posterior mean with grid random-walk
// Metropolis-Hastings over reward space. One FindNextReward call runs exactly
// MCMCIter steps; there is no early exit and no mid-chain cancellation.
type PolicyWalk struct {
	Evaluator *quality.Evaluator
	Prior     RewardPrior
	Rand      *rand.Rand

	Beta      float64
	RewardMax float64
	StepSize  float64
	Burn      float64
	MCMCIter  int
	Cooling   bool

	Progress ProgressFn

	diag *Diagnostics
}

// NewPolicyWalk validates the sampler configuration.
func NewPolicyWalk(p PolicyWalk) (*PolicyWalk, error) {
	if p.Evaluator == nil {
		return nil, errors.New("quality evaluator is required")
	}
	if p.Prior == nil {
		return nil, errors.New("reward prior is required")
	}
	if p.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if p.Beta <= 0 {
		return nil, errors.New("beta must be > 0")
	}
	if p.RewardMax <= 0 {
		return nil, errors.New("reward max must be > 0")
	}
	// The proposal moves on the fixed unit box; an initial draw beyond it
	// would leave the bounded resampling loop with no valid move.
	if p.RewardMax > 1 {
		return nil, errors.New("reward max must be <= 1: proposals are bounded to the unit box")
	}
	if p.StepSize <= 0 {
		return nil, errors.New("step size must be > 0")
	}
	if p.Burn < 0 {
		return nil, errors.New("burn must be >= 0")
	}
	if p.MCMCIter < 1 {
		return nil, errors.New("mcmc iterations must be >= 1")
	}
	p.diag = NewDiagnostics()
	return &p, nil
}

func (p *PolicyWalk) Name() string {
	return "policywalk"
}

// Diagnostics exposes the append-only record accumulated across calls.
func (p *PolicyWalk) Diagnostics() *Diagnostics {
	return p.diag
}

// FindNextReward runs one PolicyWalk chain against the generated batches and
// returns the final running mean. Malformed trajectory data surfaces as an
// error with no partial update recorded.
func (p *PolicyWalk) FindNextReward(ctx context.Context, generated []model.TrajectoryBatch) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := p.initializeReward()
	rMean := append([]float64(nil), r...)
	proposal := &PolicyWalkProposal{
		Dim:     len(r),
		Delta:   p.StepSize,
		Bounded: true,
		Rand:    p.Rand,
	}

	qe, err := p.Evaluator.ExpertQuality(r)
	if err != nil {
		return nil, err
	}
	qpi, err := p.Evaluator.GeneratedQuality(r, generated)
	if err != nil {
		return nil, err
	}
	p.diag.recordLoss(qualityLoss(qe, qpi))
	// Burn is a percentage of the chain length, truncated toward zero.
	burnPoint := int(float64(p.MCMCIter) * p.Burn / 100)

	for step := 1; step <= p.MCMCIter; step++ {
		rNew := proposal.Propose(rMean)
		qeNew, err := p.Evaluator.ExpertQuality(rNew)
		if err != nil {
			return nil, err
		}
		qpiNew, err := p.Evaluator.GeneratedQuality(rNew, generated)
		if err != nil {
			return nil, err
		}

		ratio := acceptanceRatio(rMean, rNew, qe, qeNew, qpi, qpiNew, p.Beta, p.Prior)
		if acceptProbability(ratio, step, p.Cooling) > p.Rand.Float64() {
			rMean = iterativeRewardMean(rMean, rNew, step)
			p.diag.recordAccept(step)
		}

		if step > burnPoint {
			p.diag.recordTrace(rMean)
			p.diag.recordWalk(rNew)
		}

		if p.Progress != nil && step%10 == 0 {
			p.Progress(step, rNew, rMean)
		}
	}

	p.diag.recordIterationReward(rMean)
	return rMean, nil
}

// initializeReward draws uniformly within [-RewardMax, RewardMax] per
// dimension. With cooling enabled every dimension is replaced by the maximum
// of the prior's density evaluated at the draw, the tempered start the
// cooled chain expects.
func (p *PolicyWalk) initializeReward() []float64 {
	dim := p.Evaluator.Graph.RewardDim
	r := make([]float64, dim)
	for i := range r {
		r[i] = -p.RewardMax + p.Rand.Float64()*2*p.RewardMax
	}
	if p.Cooling {
		density := p.Prior.Density(r)
		peak := floats.Max(density)
		for i := range r {
			r[i] = peak
		}
	}
	return r
}

// iterativeRewardMean folds a new sample into the running mean with the
// incremental-average recurrence.
func iterativeRewardMean(mean, sample []float64, step int) []float64 {
	out := make([]float64, len(mean))
	w := float64(step)
	for i := range mean {
		out[i] = (w-1)/w*mean[i] + sample[i]/w
	}
	return out
}

// qualityLoss is the diagnostic scalar recorded at chain start: the summed
// expert/generated quality gap across start states.
func qualityLoss(qe []float64, qpi [][]float64) float64 {
	loss := 0.0
	for s, qExpert := range qe {
		for _, qGenerated := range qpi[s] {
			loss += qExpert - qGenerated
		}
	}
	return loss
}
