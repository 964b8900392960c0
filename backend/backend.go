// SPDX-License-Identifier: MIT

// Package backend stores the append-only chain of an ensemble sampler.
//
// A Backend is written only by the goroutine driving the sampler. Every
// completed iteration is persisted by Append before the next one starts, so a
// session stopped at any point can be resumed from Last.
//
// Two implementations are provided: Memory for tests and short runs, and
// SQLite (modernc.org/sqlite, no cgo) for durable, resumable sessions.
package backend

import (
	"errors"

	"github.com/katalvlaran/lvmcmc/chain"
)

var (
	// ErrNotInitialized indicates Append or Last before Reset (or on an empty store).
	ErrNotInitialized = errors.New("backend: not initialized, call Reset first")

	// ErrClosed indicates use after Close.
	ErrClosed = errors.New("backend: closed")
)

// Backend is the chain store consumed by the sampler and the reassembler.
type Backend interface {
	// Reset discards any stored iterations and sizes the store for walkers × dims.
	Reset(walkers, dims int) error
	// Append persists one iteration.
	Append(step chain.Step) error
	// Iteration returns the number of stored iterations.
	Iteration() int
	// Shape returns (walkers, dims); (0, 0) before Reset.
	Shape() (walkers, dims int)
	// Last returns the most recent iteration; chain.ErrEmpty when none is stored.
	Last() (chain.Step, error)
	// Chain returns stored positions after discard/thin.
	Chain(discard, thin int) (*chain.Chain, error)
	// Accepted returns per-walker accepted-proposal counts.
	Accepted() []int
	Close() error
}

// AcceptanceFraction returns Accepted()/Iteration() per walker.
func AcceptanceFraction(b Backend) []float64 {
	acc := b.Accepted()
	out := make([]float64, len(acc))
	n := b.Iteration()
	if n == 0 {
		return out
	}
	for i, a := range acc {
		out[i] = float64(a) / float64(n)
	}

	return out
}
