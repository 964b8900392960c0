// SPDX-License-Identifier: MIT

// Package chain holds the append-only (iteration, walker, dimension) array
// produced by an ensemble sampler, plus the per-iteration Step record that
// backends persist.
//
// Retrieval follows the usual ensemble-sampler convention: Slice(discard, thin)
// keeps iterations discard+thin−1, discard+2·thin−1, … and Flat merges the
// walker axis into rows ordered t·W + w.
package chain

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvmcmc/matrix"
)

var (
	// ErrShape indicates a walker/dimension count below 1 or a step whose
	// shape differs from the chain's.
	ErrShape = errors.New("chain: shape mismatch")

	// ErrOutOfRange indicates an iteration, walker or dimension index outside the chain.
	ErrOutOfRange = errors.New("chain: index out of range")

	// ErrSlice indicates discard < 0 or thin < 1.
	ErrSlice = errors.New("chain: discard must be >= 0 and thin >= 1")

	// ErrEmpty indicates an operation that needs at least one iteration.
	ErrEmpty = errors.New("chain: no iterations")
)

// Chain is a dense, row-major (t, w, d) array.
type Chain struct {
	walkers int
	dims    int
	data    []float64
}

// New returns an empty chain for the given ensemble shape.
func New(walkers, dims int) (*Chain, error) {
	if walkers < 1 || dims < 1 {
		return nil, fmt.Errorf("New(%d, %d): %w", walkers, dims, ErrShape)
	}

	return &Chain{walkers: walkers, dims: dims}, nil
}

// Steps returns the number of stored iterations.
func (c *Chain) Steps() int { return len(c.data) / (c.walkers * c.dims) }

// Walkers returns W.
func (c *Chain) Walkers() int { return c.walkers }

// Dims returns D.
func (c *Chain) Dims() int { return c.dims }

// Append copies a W×D position matrix in as the next iteration.
func (c *Chain) Append(pos *matrix.Dense) error {
	if err := matrix.ValidateNotNil(pos); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	if pos.Rows() != c.walkers || pos.Cols() != c.dims {
		return fmt.Errorf("Append: %dx%d into %dx%d: %w", pos.Rows(), pos.Cols(), c.walkers, c.dims, ErrShape)
	}
	for _, row := range pos.RowsView() {
		c.data = append(c.data, row...)
	}

	return nil
}

func (c *Chain) index(t, w, d int) (int, error) {
	if t < 0 || t >= c.Steps() || w < 0 || w >= c.walkers || d < 0 || d >= c.dims {
		return 0, fmt.Errorf("(%d,%d,%d): %w", t, w, d, ErrOutOfRange)
	}

	return (t*c.walkers+w)*c.dims + d, nil
}

// At returns the coordinate d of walker w at iteration t.
func (c *Chain) At(t, w, d int) (float64, error) {
	i, err := c.index(t, w, d)
	if err != nil {
		return 0, fmt.Errorf("At: %w", err)
	}

	return c.data[i], nil
}

// Step returns iteration t as a fresh W×D matrix.
func (c *Chain) Step(t int) (*matrix.Dense, error) {
	if t < 0 || t >= c.Steps() {
		return nil, fmt.Errorf("Step(%d): %w", t, ErrOutOfRange)
	}
	m, err := matrix.NewDense(c.walkers, c.dims)
	if err != nil {
		return nil, err
	}
	base := t * c.walkers * c.dims
	for w := 0; w < c.walkers; w++ {
		for d := 0; d < c.dims; d++ {
			_ = m.Set(w, d, c.data[base+w*c.dims+d])
		}
	}

	return m, nil
}

// Last returns the most recent positions.
func (c *Chain) Last() (*matrix.Dense, error) {
	if c.Steps() == 0 {
		return nil, fmt.Errorf("Last: %w", ErrEmpty)
	}

	return c.Step(c.Steps() - 1)
}

// Series returns coordinate d of walker w over all iterations.
func (c *Chain) Series(w, d int) ([]float64, error) {
	if w < 0 || w >= c.walkers || d < 0 || d >= c.dims {
		return nil, fmt.Errorf("Series(%d, %d): %w", w, d, ErrOutOfRange)
	}
	n := c.Steps()
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		out[t] = c.data[(t*c.walkers+w)*c.dims+d]
	}

	return out, nil
}

// Slice returns a copy holding iterations discard+thin−1, discard+2·thin−1, …
// The result may have zero steps.
func (c *Chain) Slice(discard, thin int) (*Chain, error) {
	if discard < 0 || thin < 1 {
		return nil, fmt.Errorf("Slice(%d, %d): %w", discard, thin, ErrSlice)
	}
	stride := c.walkers * c.dims
	out := &Chain{walkers: c.walkers, dims: c.dims}
	for t := discard + thin - 1; t < c.Steps(); t += thin {
		out.data = append(out.data, c.data[t*stride:(t+1)*stride]...)
	}

	return out, nil
}

// Prefix returns a copy of the first n iterations.
func (c *Chain) Prefix(n int) (*Chain, error) {
	if n < 0 || n > c.Steps() {
		return nil, fmt.Errorf("Prefix(%d): %w", n, ErrOutOfRange)
	}
	stride := c.walkers * c.dims

	return &Chain{walkers: c.walkers, dims: c.dims, data: append([]float64(nil), c.data[:n*stride]...)}, nil
}

// Flat merges the walker axis: row t·W + w holds walker w at iteration t.
func (c *Chain) Flat() (*matrix.Dense, error) {
	n := c.Steps() * c.walkers
	if n == 0 {
		return nil, fmt.Errorf("Flat: %w", ErrEmpty)
	}
	m, err := matrix.NewDense(n, c.dims)
	if err != nil {
		return nil, err
	}
	for r := 0; r < n; r++ {
		for d := 0; d < c.dims; d++ {
			_ = m.Set(r, d, c.data[r*c.dims+d])
		}
	}

	return m, nil
}
