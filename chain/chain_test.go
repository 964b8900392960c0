// SPDX-License-Identifier: MIT

package chain_test

import (
	"testing"

	"github.com/katalvlaran/lvmcmc/chain"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/stretchr/testify/require"
)

// build returns a chain where coordinate d of walker w at step t is 100t+10w+d.
func build(t *testing.T, steps, walkers, dims int) *chain.Chain {
	t.Helper()
	c, err := chain.New(walkers, dims)
	require.NoError(t, err)
	for s := 0; s < steps; s++ {
		m, err := matrix.NewDense(walkers, dims)
		require.NoError(t, err)
		for w := 0; w < walkers; w++ {
			for d := 0; d < dims; d++ {
				require.NoError(t, m.Set(w, d, float64(100*s+10*w+d)))
			}
		}
		require.NoError(t, c.Append(m))
	}

	return c
}

func TestChainAppendAndAccess(t *testing.T) {
	c := build(t, 3, 2, 2)
	require.Equal(t, 3, c.Steps())

	v, err := c.At(2, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 210.0, v)
	_, err = c.At(3, 0, 0)
	require.ErrorIs(t, err, chain.ErrOutOfRange)

	s, err := c.Series(1, 1)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 111, 211}, s)

	last, err := c.Last()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{200, 201}, {210, 211}}, last.RowsView())

	bad, _ := matrix.NewDense(3, 2)
	require.ErrorIs(t, c.Append(bad), chain.ErrShape)
}

func TestChainSliceFollowsDiscardThin(t *testing.T) {
	c := build(t, 10, 1, 1)

	s, err := c.Slice(2, 3) // iterations 4, 7
	require.NoError(t, err)
	require.Equal(t, 2, s.Steps())
	series, _ := s.Series(0, 0)
	require.Equal(t, []float64{400, 700}, series)

	s, err = c.Slice(0, 1)
	require.NoError(t, err)
	require.Equal(t, 10, s.Steps())

	s, err = c.Slice(20, 1)
	require.NoError(t, err)
	require.Equal(t, 0, s.Steps())

	_, err = c.Slice(0, 0)
	require.ErrorIs(t, err, chain.ErrSlice)
}

func TestChainFlatRowOrder(t *testing.T) {
	c := build(t, 2, 2, 3)
	f, err := c.Flat()
	require.NoError(t, err)
	require.Equal(t, 4, f.Rows())
	row, _ := f.Row(1) // t=0, w=1
	require.Equal(t, []float64{10, 11, 12}, row)
	row, _ = f.Row(2) // t=1, w=0
	require.Equal(t, []float64{100, 101, 102}, row)

	empty, _ := chain.New(2, 3)
	_, err = empty.Flat()
	require.ErrorIs(t, err, chain.ErrEmpty)
	_, err = empty.Last()
	require.ErrorIs(t, err, chain.ErrEmpty)
}

func TestChainPrefix(t *testing.T) {
	c := build(t, 5, 2, 1)
	p, err := c.Prefix(2)
	require.NoError(t, err)
	require.Equal(t, 2, p.Steps())
	_, err = c.Prefix(6)
	require.ErrorIs(t, err, chain.ErrOutOfRange)
}

func TestStepValidate(t *testing.T) {
	pos, _ := matrix.NewDense(2, 3)
	ok := chain.Step{Positions: pos, LogProb: []float64{0, 0}, Accepted: []bool{true, false}}
	require.NoError(t, ok.Validate(2, 3))
	require.ErrorIs(t, ok.Validate(3, 3), chain.ErrShape)
	require.Error(t, chain.Step{}.Validate(2, 3))
}
