// SPDX-License-Identifier: MIT

package autocorr

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvmcmc/chain"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultC is the window constant.
	DefaultC = 5.0

	// DefaultTol is the chain-length multiple of τ required for a reliable estimate.
	DefaultTol = 50.0
)

var (
	// ErrChainTooShort indicates N <= tol·τ for some dimension.
	ErrChainTooShort = errors.New("autocorr: chain is shorter than tol times the autocorrelation time")

	// ErrUndefined indicates a NaN estimate, typically a dimension that never moved.
	ErrUndefined = errors.New("autocorr: autocorrelation time is undefined")
)

// Error reports an unreliable estimate. Tau is always populated.
type Error struct {
	Tau   []float64
	Steps int
	Tol   float64
	Err   error // ErrChainTooShort or ErrUndefined
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: N=%d, tol=%g, tau=%v", e.Err, e.Steps, e.Tol, e.Tau)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tunes IntegratedTime. Zero fields take the defaults.
type Options struct {
	C     float64
	Tol   float64
	Quiet bool // skip the reliability check and always return the estimate
}

func nextPow2(n int) int {
	i := 1
	for i < n {
		i <<= 1
	}

	return i
}

// Function1D returns the normalized autocorrelation function of x at lags 0..len(x)−1.
// A constant series yields NaN everywhere.
func Function1D(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	size := 2 * nextPow2(n)
	mean := stat.Mean(x, nil)
	padded := make([]float64, size)
	for i, v := range x {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	acf := fft.Sequence(nil, coeff)[:n]
	floats.Scale(1/acf[0], acf)

	return acf
}

// window returns the first m with m >= c·taus[m], else len(taus)−1.
func window(taus []float64, c float64) int {
	for m, t := range taus {
		if float64(m) >= c*t {
			return m
		}
	}

	return len(taus) - 1
}

// IntegratedTime estimates τ per dimension over the whole chain.
func IntegratedTime(c *chain.Chain, opts Options) ([]float64, error) {
	if c == nil || c.Steps() == 0 {
		return nil, fmt.Errorf("IntegratedTime: %w", chain.ErrEmpty)
	}
	if opts.C <= 0 {
		opts.C = DefaultC
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}

	n, nw := c.Steps(), c.Walkers()
	tau := make([]float64, c.Dims())
	f := make([]float64, n)
	taus := make([]float64, n)
	for d := range tau {
		for i := range f {
			f[i] = 0
		}
		for w := 0; w < nw; w++ {
			series, err := c.Series(w, d)
			if err != nil {
				return nil, fmt.Errorf("IntegratedTime: %w", err)
			}
			floats.Add(f, Function1D(series))
		}
		floats.Scale(1/float64(nw), f)

		floats.CumSum(taus, f)
		for i := range taus {
			taus[i] = 2*taus[i] - 1
		}
		tau[d] = taus[window(taus, opts.C)]
	}

	if opts.Quiet {
		return tau, nil
	}
	for _, t := range tau {
		if math.IsNaN(t) {
			return tau, &Error{Tau: tau, Steps: n, Tol: opts.Tol, Err: ErrUndefined}
		}
	}
	for _, t := range tau {
		if opts.Tol*t > float64(n) {
			return tau, &Error{Tau: tau, Steps: n, Tol: opts.Tol, Err: ErrChainTooShort}
		}
	}

	return tau, nil
}
