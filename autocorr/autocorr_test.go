// SPDX-License-Identifier: MIT

package autocorr_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/lvmcmc/autocorr"
	"github.com/katalvlaran/lvmcmc/chain"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/rng"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// ar1 builds a chain whose every (walker, dim) series is an AR(1) process with
// coefficient phi; its integrated autocorrelation time is (1+phi)/(1−phi).
func ar1(t *testing.T, steps, walkers, dims int, phi float64, seed uint64) *chain.Chain {
	t.Helper()
	c, err := chain.New(walkers, dims)
	require.NoError(t, err)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng.New(seed)}
	prev := make([]float64, walkers*dims)
	for s := 0; s < steps; s++ {
		m, err := matrix.NewDense(walkers, dims)
		require.NoError(t, err)
		for i := range prev {
			prev[i] = phi*prev[i] + norm.Rand()
			require.NoError(t, m.Set(i/dims, i%dims, prev[i]))
		}
		require.NoError(t, c.Append(m))
	}

	return c
}

func TestFunction1D(t *testing.T) {
	acf := autocorr.Function1D([]float64{1, -1, 1, -1, 1, -1})
	require.Len(t, acf, 6)
	require.InDelta(t, 1.0, acf[0], 1e-12)
	require.Less(t, acf[1], 0.0)

	for _, v := range autocorr.Function1D([]float64{3, 3, 3}) {
		require.True(t, math.IsNaN(v))
	}
	require.Nil(t, autocorr.Function1D(nil))
}

func TestIntegratedTimeWhiteNoise(t *testing.T) {
	c := ar1(t, 2000, 8, 2, 0, 1)
	tau, err := autocorr.IntegratedTime(c, autocorr.Options{})
	require.NoError(t, err)
	for _, v := range tau {
		require.InDelta(t, 1.0, v, 0.3)
	}
}

func TestIntegratedTimeAR1(t *testing.T) {
	phi := 0.8 // tau = 9
	c := ar1(t, 4000, 16, 1, phi, 2)
	tau, err := autocorr.IntegratedTime(c, autocorr.Options{})
	require.NoError(t, err)
	require.InEpsilon(t, (1+phi)/(1-phi), tau[0], 0.25)
}

func TestIntegratedTimeTooShort(t *testing.T) {
	c := ar1(t, 100, 8, 1, 0.9, 3)
	tau, err := autocorr.IntegratedTime(c, autocorr.Options{})
	require.ErrorIs(t, err, autocorr.ErrChainTooShort)

	var ae *autocorr.Error
	require.True(t, errors.As(err, &ae))
	require.Equal(t, 100, ae.Steps)
	require.Equal(t, tau, ae.Tau)

	quiet, err := autocorr.IntegratedTime(c, autocorr.Options{Quiet: true})
	require.NoError(t, err)
	require.Equal(t, tau, quiet)
}

func TestIntegratedTimeConstantIsUndefined(t *testing.T) {
	c, _ := chain.New(2, 1)
	m, _ := matrix.NewDenseFromRows([][]float64{{1}, {1}})
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Append(m))
	}
	_, err := autocorr.IntegratedTime(c, autocorr.Options{})
	require.ErrorIs(t, err, autocorr.ErrUndefined)

	empty, _ := chain.New(2, 1)
	_, err = autocorr.IntegratedTime(empty, autocorr.Options{})
	require.ErrorIs(t, err, chain.ErrEmpty)
}
