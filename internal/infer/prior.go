package infer

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// RewardPrior maps a reward vector to per-dimension densities. LogDensity
// feeds the acceptance rule; Density is what the tempered initialization
// takes the maximum of.
type RewardPrior interface {
	LogDensity(reward []float64) []float64
	Density(reward []float64) []float64
}

// UniformRewardPrior applies an independent uniform density on every reward
// dimension.
type UniformRewardPrior struct {
	dist distuv.Uniform
}

// NewUniformRewardPrior builds a symmetric uniform prior over [-rmax, rmax].
func NewUniformRewardPrior(rmax float64) (*UniformRewardPrior, error) {
	if rmax <= 0 {
		return nil, fmt.Errorf("reward max must be > 0: %v", rmax)
	}
	return &UniformRewardPrior{dist: distuv.Uniform{Min: -rmax, Max: rmax}}, nil
}

func (p *UniformRewardPrior) LogDensity(reward []float64) []float64 {
	out := make([]float64, len(reward))
	for i, r := range reward {
		out[i] = p.dist.LogProb(r)
	}
	return out
}

func (p *UniformRewardPrior) Density(reward []float64) []float64 {
	out := make([]float64, len(reward))
	for i, r := range reward {
		out[i] = p.dist.Prob(r)
	}
	return out
}

// GaussianRewardPrior applies an independent normal density on every reward
// dimension.
type GaussianRewardPrior struct {
	dist distuv.Normal
}

// NewGaussianRewardPrior builds a zero-mean normal prior with the given
// standard deviation.
func NewGaussianRewardPrior(sigma float64) (*GaussianRewardPrior, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("sigma must be > 0: %v", sigma)
	}
	return &GaussianRewardPrior{dist: distuv.Normal{Mu: 0, Sigma: sigma}}, nil
}

func (p *GaussianRewardPrior) LogDensity(reward []float64) []float64 {
	out := make([]float64, len(reward))
	for i, r := range reward {
		out[i] = p.dist.LogProb(r)
	}
	return out
}

func (p *GaussianRewardPrior) Density(reward []float64) []float64 {
	out := make([]float64, len(reward))
	for i, r := range reward {
		out[i] = p.dist.Prob(r)
	}
	return out
}

// PriorFromName selects a prior implementation by configuration name.
func PriorFromName(name string, rmax float64) (RewardPrior, error) {
	switch name {
	case "", "uniform":
		return NewUniformRewardPrior(rmax)
	case "gaussian":
		return NewGaussianRewardPrior(rmax)
	default:
		return nil, fmt.Errorf("unsupported reward prior: %s", name)
	}
}
