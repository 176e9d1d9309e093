package infer

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// acceptanceRatio couples the prior and the trajectory-quality likelihoods of
// the current reward and the proposal. The likelihood of a reward point is
// lk = -logsumexp(beta * (q_generated - q_expert)) over the full cross
// product of expert and generated quality values; the rule returns
// (lkNew + pNew) / (lk + p), a ratio of sums rather than a ratio of
// posteriors. A degenerate zero denominator is unguarded and propagates as
// IEEE Inf/NaN.
func acceptanceRatio(reward, rewardNew []float64, qe, qeNew []float64, qpi, qpiNew [][]float64, beta float64, prior RewardPrior) float64 {
	p := floats.Sum(prior.LogDensity(reward))
	pNew := floats.Sum(prior.LogDensity(rewardNew))

	lk := -qualityLogLikelihood(qe, qpi, beta)
	lkNew := -qualityLogLikelihood(qeNew, qpiNew, beta)

	return (lkNew + pNew) / (lk + p)
}

// qualityLogLikelihood aggregates quality gaps in the log domain to avoid
// overflow on large beta-scaled sums.
func qualityLogLikelihood(qe []float64, qpi [][]float64, beta float64) float64 {
	z := make([]float64, 0, len(qe)*len(qpi))
	for _, qExpert := range qe {
		for _, perState := range qpi {
			for _, qGenerated := range perState {
				z = append(z, beta*(qGenerated-qExpert))
			}
		}
	}
	return floats.LogSumExp(z)
}

// coolingExponent is the tempering schedule applied to the acceptance
// probability: monotonically increasing in step, so the chain grows more
// selective as it progresses.
func coolingExponent(step int) float64 {
	return 5 + float64(step)/50
}

// acceptProbability caps the ratio at one and, when tempering is enabled,
// raises the capped value to the step's cooling exponent.
func acceptProbability(ratio float64, step int, cooling bool) float64 {
	p := math.Min(1, ratio)
	if cooling {
		p = math.Pow(math.Min(1, ratio), coolingExponent(step))
	}
	return p
}
