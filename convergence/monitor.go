// SPDX-License-Identifier: MIT

// Package convergence decides when an ensemble chain has run long enough.
//
// A Monitor is checked once per diagnostic period with the current
// autocorrelation-time vector τ and the current iteration. It reports
// convergence when both hold:
//
//	max(τ)·Multiple < iteration                               (long enough)
//	|mean(τ_prev) − mean(τ)| / mean(τ) < Fraction             (stable)
//
// τ_prev starts at +Inf, so the first check never converges. τ is stored as
// τ_prev after every check that does not converge. A zero, negative or
// non-finite mean(τ) never counts as stable.
//
// A Monitor is owned by one sampling session and is not safe for concurrent use.
package convergence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultMultiple is the chain-length multiple of max(τ).
	DefaultMultiple = 50.0

	// DefaultFraction is the relative drift threshold on mean(τ).
	DefaultFraction = 0.03
)

var (
	// ErrEmptyTau indicates an empty τ vector.
	ErrEmptyTau = errors.New("convergence: empty autocorrelation-time vector")

	// ErrDimChanged indicates a τ vector whose length differs from the previous one.
	ErrDimChanged = errors.New("convergence: autocorrelation-time vector changed length")
)

// Status is the outcome of one check.
type Status struct {
	Iteration  int
	MaxTau     float64
	MeanTau    float64
	Drift      float64 // relative drift of mean(τ); +Inf on the first check
	LongEnough bool
	Stable     bool
	Converged  bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMultiple overrides DefaultMultiple.
func WithMultiple(k float64) Option { return func(m *Monitor) { m.multiple = k } }

// WithFraction overrides DefaultFraction.
func WithFraction(f float64) Option { return func(m *Monitor) { m.fraction = f } }

// Monitor holds the previous τ between checks.
type Monitor struct {
	multiple float64
	fraction float64
	prev     []float64 // nil ⇒ +Inf
}

// NewMonitor returns a monitor with no previous estimate.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{multiple: DefaultMultiple, fraction: DefaultFraction}
	for _, o := range opts {
		o(m)
	}

	return m
}

// Previous returns a copy of the stored τ, or nil before the first
// non-converged check.
func (m *Monitor) Previous() []float64 {
	if m.prev == nil {
		return nil
	}

	return append([]float64(nil), m.prev...)
}

// Check evaluates τ at iteration and updates the stored estimate unless converged.
func (m *Monitor) Check(tau []float64, iteration int) (Status, error) {
	if len(tau) == 0 {
		return Status{}, fmt.Errorf("Check: %w", ErrEmptyTau)
	}
	if m.prev != nil && len(m.prev) != len(tau) {
		return Status{}, fmt.Errorf("Check: %d → %d: %w", len(m.prev), len(tau), ErrDimChanged)
	}

	st := Status{
		Iteration: iteration,
		MaxTau:    floats.Max(tau),
		MeanTau:   stat.Mean(tau, nil),
		Drift:     math.Inf(1),
	}
	st.LongEnough = st.MaxTau*m.multiple < float64(iteration)

	if m.prev != nil && st.MeanTau > 0 && !math.IsInf(st.MeanTau, 0) {
		st.Drift = math.Abs(stat.Mean(m.prev, nil)-st.MeanTau) / st.MeanTau
	}
	// NaN drift compares false
	st.Stable = st.Drift < m.fraction
	st.Converged = st.LongEnough && st.Stable

	if !st.Converged {
		m.prev = append(m.prev[:0], tau...)
	}

	return st, nil
}
