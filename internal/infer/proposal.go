package infer

import "math/rand"

// PolicyWalkProposal is a grid random-walk proposal over reward space: one
// uniformly chosen dimension moves by ±Delta per call. In bounded mode the
// move must keep that dimension inside the fixed unit box [-1, 1]; dimension
// and sign are resampled until a valid move is found, which requires at least
// one coordinate of the input to sit within the box.
type PolicyWalkProposal struct {
	Dim     int
	Delta   float64
	Bounded bool
	Rand    *rand.Rand
}

// Propose returns a fresh vector differing from current in exactly one
// dimension. The input is never mutated.
func (p *PolicyWalkProposal) Propose(current []float64) []float64 {
	next := append([]float64(nil), current...)
	for {
		d := p.Delta
		if p.Rand.Intn(2) == 0 {
			d = -p.Delta
		}
		i := p.Rand.Intn(p.Dim)
		if p.Bounded {
			if moved := next[i] + d; -1 <= moved && moved <= 1 {
				next[i] = moved
				return next
			}
			continue
		}
		next[i] += d
		return next
	}
}
