// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"

	"github.com/katalvlaran/lvmcmc/chain"
)

// Memory keeps the chain in process memory.
type Memory struct {
	c        *chain.Chain
	logProb  [][]float64
	accepted []int
	closed   bool
}

// NewMemory returns an uninitialized in-memory backend.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Reset(walkers, dims int) error {
	if m.closed {
		return fmt.Errorf("Reset: %w", ErrClosed)
	}
	c, err := chain.New(walkers, dims)
	if err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	m.c, m.logProb, m.accepted = c, nil, make([]int, walkers)

	return nil
}

func (m *Memory) Append(step chain.Step) error {
	switch {
	case m.closed:
		return fmt.Errorf("Append: %w", ErrClosed)
	case m.c == nil:
		return fmt.Errorf("Append: %w", ErrNotInitialized)
	}
	if err := step.Validate(m.c.Walkers(), m.c.Dims()); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	if err := m.c.Append(step.Positions); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	m.logProb = append(m.logProb, append([]float64(nil), step.LogProb...))
	for w, ok := range step.Accepted {
		if ok {
			m.accepted[w]++
		}
	}

	return nil
}

func (m *Memory) Iteration() int {
	if m.c == nil {
		return 0
	}

	return m.c.Steps()
}

func (m *Memory) Shape() (int, int) {
	if m.c == nil {
		return 0, 0
	}

	return m.c.Walkers(), m.c.Dims()
}

func (m *Memory) Last() (chain.Step, error) {
	if m.c == nil {
		return chain.Step{}, fmt.Errorf("Last: %w", ErrNotInitialized)
	}
	pos, err := m.c.Last()
	if err != nil {
		return chain.Step{}, fmt.Errorf("Last: %w", err)
	}

	return chain.Step{
		Positions: pos,
		LogProb:   append([]float64(nil), m.logProb[len(m.logProb)-1]...),
		Accepted:  make([]bool, m.c.Walkers()),
	}, nil
}

func (m *Memory) Chain(discard, thin int) (*chain.Chain, error) {
	if m.c == nil {
		return nil, fmt.Errorf("Chain: %w", ErrNotInitialized)
	}

	return m.c.Slice(discard, thin)
}

func (m *Memory) Accepted() []int { return append([]int(nil), m.accepted...) }

func (m *Memory) Close() error {
	m.closed = true

	return nil
}

var _ Backend = (*Memory)(nil)
