// SPDX-License-Identifier: MIT

// Package objective defines the log-posterior handle consumed by the sampler.
//
// Besides evaluating a flat parameter vector, an Objective exposes the shape
// table that maps flat columns onto named parameters and the expanded label
// list used by diagnostics.
package objective

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvmcmc/shape"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNilFunc indicates a Func adapter without a function.
	ErrNilFunc = errors.New("objective: nil log-probability function")

	// ErrDim indicates a parameter vector whose length differs from the shape table.
	ErrDim = errors.New("objective: parameter vector length does not match shape table")

	// ErrGaussian indicates mismatched mean/sigma lengths or a non-positive sigma.
	ErrGaussian = errors.New("objective: gaussian needs one positive sigma per mean")
)

// Objective is a log-probability over a flat parameter vector.
type Objective interface {
	// LogProb returns log p(θ). −Inf marks an infeasible θ.
	LogProb(theta []float64) (float64, error)
	ParameterShapes() *shape.Table
	ExpandedLabels() []string
}

// Func adapts a plain Go function to Objective.
type Func struct {
	Fn     func(theta []float64) (float64, error)
	Shapes *shape.Table
}

// NewFunc wraps fn over the parameters in shapes.
func NewFunc(fn func([]float64) (float64, error), shapes *shape.Table) (*Func, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if shapes == nil {
		shapes = shape.New()
	}

	return &Func{Fn: fn, Shapes: shapes}, nil
}

func (f *Func) LogProb(theta []float64) (float64, error) {
	if err := checkDim(f.Shapes, theta); err != nil {
		return 0, err
	}

	return f.Fn(theta)
}

func (f *Func) ParameterShapes() *shape.Table { return f.Shapes }

func (f *Func) ExpandedLabels() []string { return f.Shapes.Labels() }

// Gaussian is an independent normal log density, optionally truncated to
// per-dimension bounds (outside ⇒ −Inf).
type Gaussian struct {
	shapes *shape.Table
	dists  []distuv.Normal
	lower  []float64
	upper  []float64
}

// NewGaussian builds a Gaussian over shapes with one mean and sigma per flat column.
// lower/upper may be nil.
func NewGaussian(shapes *shape.Table, mean, sigma, lower, upper []float64) (*Gaussian, error) {
	d := shapes.Dim()
	if len(mean) != d || len(sigma) != d {
		return nil, fmt.Errorf("NewGaussian: %d means, %d sigmas, %d columns: %w", len(mean), len(sigma), d, ErrGaussian)
	}
	if (lower != nil && len(lower) != d) || (upper != nil && len(upper) != d) {
		return nil, fmt.Errorf("NewGaussian: bounds length: %w", ErrGaussian)
	}
	g := &Gaussian{shapes: shapes, dists: make([]distuv.Normal, d), lower: lower, upper: upper}
	for i := range mean {
		if !(sigma[i] > 0) {
			return nil, fmt.Errorf("NewGaussian: sigma[%d]=%g: %w", i, sigma[i], ErrGaussian)
		}
		g.dists[i] = distuv.Normal{Mu: mean[i], Sigma: sigma[i]}
	}

	return g, nil
}

func (g *Gaussian) LogProb(theta []float64) (float64, error) {
	if err := checkDim(g.shapes, theta); err != nil {
		return 0, err
	}
	lp := 0.0
	for i, x := range theta {
		if (g.lower != nil && x < g.lower[i]) || (g.upper != nil && x > g.upper[i]) {
			return math.Inf(-1), nil
		}
		lp += g.dists[i].LogProb(x)
	}

	return lp, nil
}

func (g *Gaussian) ParameterShapes() *shape.Table { return g.shapes }

func (g *Gaussian) ExpandedLabels() []string { return g.shapes.Labels() }

func checkDim(t *shape.Table, theta []float64) error {
	if t.Len() > 0 && len(theta) != t.Dim() {
		return fmt.Errorf("LogProb: len %d, table %d: %w", len(theta), t.Dim(), ErrDim)
	}

	return nil
}
