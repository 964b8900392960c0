// SPDX-License-Identifier: MIT

package sampler

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Move proposes new positions for walkers s given the complementary set c.
// It returns the proposals and the log proposal-density ratio per walker.
type Move interface {
	Name() string
	// MinComplement is the smallest complementary set the move can work with.
	MinComplement() int
	Propose(r *rand.Rand, s, c [][]float64) (q [][]float64, factors []float64)
}

// WeightedMove pairs a move with its selection weight.
type WeightedMove struct {
	Move   Move
	Weight float64
}

// DefaultMoves is the differential-evolution / stretch mix used when none is configured.
func DefaultMoves() []WeightedMove {
	return []WeightedMove{
		{Move: DEMove{}, Weight: 0.5},
		{Move: StretchMove{}, Weight: 0.5},
	}
}

// StretchMove is the Goodman & Weare stretch move. A ≤ 1 means the default 2.
type StretchMove struct {
	A float64
}

func (StretchMove) Name() string { return "stretch" }

func (StretchMove) MinComplement() int { return 1 }

func (m StretchMove) Propose(r *rand.Rand, s, c [][]float64) ([][]float64, []float64) {
	a := m.A
	if a <= 1 {
		a = 2
	}
	ndim := len(s[0])
	q := make([][]float64, len(s))
	factors := make([]float64, len(s))
	for i, si := range s {
		u := (a-1)*r.Float64() + 1
		z := u * u / a
		cj := c[r.Intn(len(c))]
		qi := make([]float64, ndim)
		for d := range qi {
			qi[d] = cj[d] - (cj[d]-si[d])*z
		}
		q[i] = qi
		factors[i] = float64(ndim-1) * math.Log(z)
	}

	return q, factors
}

// DEMove is the differential-evolution move. Zero fields take the defaults:
// Sigma 1e-5 and Gamma0 2.38/√(2D).
type DEMove struct {
	Sigma  float64
	Gamma0 float64
}

func (DEMove) Name() string { return "de" }

func (DEMove) MinComplement() int { return 2 }

func (m DEMove) Propose(r *rand.Rand, s, c [][]float64) ([][]float64, []float64) {
	ndim := len(s[0])
	sigma := m.Sigma
	if sigma <= 0 {
		sigma = 1e-5
	}
	g0 := m.Gamma0
	if g0 <= 0 {
		g0 = 2.38 / math.Sqrt(2*float64(ndim))
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: r}

	q := make([][]float64, len(s))
	for i, si := range s {
		f := sigma * norm.Rand()
		j := r.Intn(len(c))
		k := r.Intn(len(c) - 1)
		if k >= j {
			k++
		}
		qi := make([]float64, ndim)
		for d := range qi {
			qi[d] = si[d] + g0*(c[j][d]-c[k][d]) + f
		}
		q[i] = qi
	}

	return q, make([]float64, len(s))
}
