// SPDX-License-Identifier: MIT

// Package pool evaluates a function over many parameter vectors with a fixed
// degree of parallelism.
//
// One Pool is created per sampling session and reused by every iteration.
// Map blocks until every input has been evaluated or the first error occurs,
// so successive calls never overlap. Panics raised by the evaluated function
// are recovered and returned as ErrTaskPanic.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrWorkers indicates a worker count below 1.
	ErrWorkers = errors.New("pool: worker count must be at least 1")

	// ErrClosed indicates Map on a closed pool.
	ErrClosed = errors.New("pool: closed")

	// ErrTaskPanic wraps a panic recovered from an evaluated function.
	ErrTaskPanic = errors.New("pool: task panicked")
)

// Func evaluates one parameter vector.
type Func func(x []float64) (float64, error)

// Pool bounds concurrent evaluations to Workers().
type Pool struct {
	workers int

	mu     sync.Mutex
	closed bool
}

// New returns a pool running at most workers evaluations at once.
func New(workers int) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("New(%d): %w", workers, ErrWorkers)
	}

	return &Pool{workers: workers}, nil
}

// Workers returns the parallelism bound.
func (p *Pool) Workers() int { return p.workers }

// Map returns fn(inputs[i]) for every i, in input order.
// The first error cancels the remaining evaluations and is returned with its index.
func (p *Pool) Map(ctx context.Context, fn Func, inputs [][]float64) ([]float64, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("Map: %w", ErrClosed)
	}

	out := make([]float64, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := call(fn, inputs[i])
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Map: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Map: %w", err)
	}

	return out, nil
}

func call(fn Func, x []float64) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()

	return fn(x)
}

// Close marks the pool unusable. It is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return nil
}
