// SPDX-License-Identifier: MIT

package perturb

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/rng"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultMultiplier gives W = 2·D walkers.
	DefaultMultiplier = 2

	// DefaultRetries is the number of redraws allowed after the first attempt.
	DefaultRetries = 20

	opTheta = "Theta"
)

// Bound is an inclusive (Lower, Upper) pair for one dimension.
type Bound struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Options tunes Theta. The zero value is valid.
type Options struct {
	Multiplier int     // walkers per dimension; 0 ⇒ DefaultMultiplier
	Bounds     []Bound // nil ⇒ unbounded
	Retries    int     // 0 ⇒ DefaultRetries
	Seed       uint64  // used when Rand is nil; 0 ⇒ rng.DefaultSeed
	Rand       *rand.Rand
	Logger     *zap.Logger
}

// Result is an accepted walker cloud.
type Result struct {
	NDim      int
	NWalkers  int
	Positions *matrix.Dense // NWalkers × NDim
	Theta     []float64     // estimate after bound clipping
	Cond      float64
	Attempts  int
}

// Theta draws NWalkers = Multiplier·len(theta) walkers around theta.
//
// Validation errors are returned before any draw. If no finite-condition cloud
// is found within the retry budget a *DegenerateError is returned.
func Theta(theta, pert []float64, opts Options) (Result, error) {
	if err := validate(theta, pert, opts); err != nil {
		return Result{}, perturbErrorf(opTheta, err)
	}
	mult := opts.Multiplier
	if mult == 0 {
		mult = DefaultMultiplier
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := opts.Rand
	if r == nil {
		r = rng.New(opts.Seed)
	}

	ndim := len(theta)
	nwalkers := mult * ndim
	center, scale := clip(theta, pert, opts.Bounds)
	unif := distuv.Uniform{Min: -1, Max: 1, Src: r}

	var (
		pos  *matrix.Dense
		cond = math.Inf(1)
		err  error
	)
	for attempt := 1; attempt <= retries+1; attempt++ {
		pos, err = matrix.NewDense(nwalkers, ndim)
		if err != nil {
			return Result{}, perturbErrorf(opTheta, err)
		}
		for w := 0; w < nwalkers; w++ {
			for d := 0; d < ndim; d++ {
				_ = pos.Set(w, d, center[d]+scale[d]*unif.Rand())
			}
		}
		cond, err = Condition(pos)
		if err != nil {
			return Result{}, perturbErrorf(opTheta, err)
		}
		if !math.IsInf(cond, 1) {
			return Result{
				NDim:      ndim,
				NWalkers:  nwalkers,
				Positions: pos,
				Theta:     center,
				Cond:      cond,
				Attempts:  attempt,
			}, nil
		}
		logger.Warn("walker cloud is singular, redrawing",
			zap.Int("attempt", attempt),
			zap.Int("retries", retries),
			zap.Float64("cond", cond))
	}

	return Result{}, perturbErrorf(opTheta, &DegenerateError{
		Attempts: retries + 1,
		Cond:     cond,
		ZeroDims: zeroDims(scale),
	})
}

// Condition returns the condition number of a walker cloud, or +Inf when any
// column has zero spread (all walkers share that coordinate).
func Condition(pos *matrix.Dense) (float64, error) {
	if err := matrix.ValidateNotNil(pos); err != nil {
		return 0, err
	}
	for d := 0; d < pos.Cols(); d++ {
		col, err := pos.Col(d)
		if err != nil {
			return 0, err
		}
		if spread(col) == 0 {
			return math.Inf(1), nil
		}
	}

	return matrix.Cond(pos)
}

func spread(xs []float64) float64 {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	return hi - lo
}

func validate(theta, pert []float64, opts Options) error {
	if len(theta) == 0 {
		return ErrInvalidEstimate
	}
	if len(theta) != len(pert) {
		return fmt.Errorf("len(theta)=%d, len(pert)=%d: %w", len(theta), len(pert), ErrLengthMismatch)
	}
	if opts.Multiplier != 0 && opts.Multiplier < 2 {
		return fmt.Errorf("multiplier %d: %w", opts.Multiplier, ErrMultiplier)
	}
	for i := range theta {
		if !finite(theta[i]) || !finite(pert[i]) {
			return fmt.Errorf("dimension %d: %w", i, ErrInvalidEstimate)
		}
	}
	if opts.Bounds == nil {
		return nil
	}
	if len(opts.Bounds) != len(theta) {
		return fmt.Errorf("%d bounds for %d dimensions: %w", len(opts.Bounds), len(theta), ErrBoundsMismatch)
	}
	for i, b := range opts.Bounds {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			return fmt.Errorf("bound %d: %w", i, ErrInvalidEstimate)
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("bound %d (%g > %g): %w", i, b.Lower, b.Upper, ErrBoundsMismatch)
		}
		// the clipping window divides by 1±pert
		if !(math.Abs(pert[i]) < 1) {
			return fmt.Errorf("bounded dimension %d: pert %g outside (-1, 1): %w", i, pert[i], ErrInvalidEstimate)
		}
	}

	return nil
}

// clip returns the draw center and the per-dimension half-width θ·pert.
// With bounds, θ is clipped into [lower/(1−pert), upper/(1+pert)]; a
// zero-width bound pins the dimension to that value with zero half-width.
func clip(theta, pert []float64, bounds []Bound) (center, scale []float64) {
	center = append([]float64(nil), theta...)
	scale = make([]float64, len(theta))
	for i := range center {
		if bounds != nil {
			b := bounds[i]
			if b.Upper == b.Lower {
				center[i] = b.Lower
				continue
			}
			lo, hi := b.Lower/(1-pert[i]), b.Upper/(1+pert[i])
			// max then min: an inverted window resolves to hi
			center[i] = math.Min(math.Max(center[i], lo), hi)
		}
		scale[i] = center[i] * pert[i]
	}

	return center, scale
}

func zeroDims(scale []float64) []int {
	var out []int
	for i, s := range scale {
		if s == 0 {
			out = append(out, i)
		}
	}

	return out
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
