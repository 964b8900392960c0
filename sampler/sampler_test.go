// SPDX-License-Identifier: MIT

package sampler_test

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/lvmcmc/autocorr"
	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/objective"
	"github.com/katalvlaran/lvmcmc/perturb"
	"github.com/katalvlaran/lvmcmc/pool"
	"github.com/katalvlaran/lvmcmc/rng"
	"github.com/katalvlaran/lvmcmc/sampler"
	"github.com/katalvlaran/lvmcmc/shape"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/stat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func gaussian(t *testing.T, mean, sigma []float64) objective.Objective {
	t.Helper()
	tb := shape.New()
	require.NoError(t, tb.Add("x", len(mean)))
	g, err := objective.NewGaussian(tb, mean, sigma, nil, nil)
	require.NoError(t, err)

	return g
}

func newSampler(t *testing.T, nwalkers, ndim int, obj objective.Objective, opts sampler.Options) (*sampler.Sampler, backend.Backend) {
	t.Helper()
	b := backend.NewMemory()
	require.NoError(t, b.Reset(nwalkers, ndim))
	p, err := pool.New(2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	s, err := sampler.New(nwalkers, ndim, obj, b, p, opts)
	require.NoError(t, err)

	return s, b
}

// TestSamplerRecoversGaussianMean runs the default move mix on a 2-D normal.
func TestSamplerRecoversGaussianMean(t *testing.T) {
	mean := []float64{1, -2}
	s, b := newSampler(t, 8, 2, gaussian(t, mean, []float64{1, 0.5}), sampler.Options{Seed: 17})

	init, err := perturb.Theta([]float64{0.5, -1.5}, []float64{0.1, 0.1}, perturb.Options{Multiplier: 4, Seed: 2})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx, init.Positions))

	for i := 0; i < 2000; i++ {
		require.NoError(t, s.Step(ctx))
	}
	require.Equal(t, 2000, s.Iteration())

	c, err := s.Chain(500, 1)
	require.NoError(t, err)
	flat, err := c.Flat()
	require.NoError(t, err)
	for d, mu := range mean {
		col, _ := flat.Col(d)
		require.InDelta(t, mu, stat.Mean(col, nil), 0.25, "dim %d", d)
	}

	for _, f := range s.AcceptanceFraction() {
		require.Greater(t, f, 0.05)
		require.Less(t, f, 0.95)
	}
	require.Equal(t, backend.AcceptanceFraction(b), s.AcceptanceFraction())

	tau, err := s.AutocorrTime(500, 1, autocorr.Options{Quiet: true})
	require.NoError(t, err)
	require.Len(t, tau, 2)
}

func TestSamplerDeterministic(t *testing.T) {
	run := func() [][]float64 {
		s, b := newSampler(t, 4, 2, gaussian(t, []float64{0, 0}, []float64{1, 1}), sampler.Options{Seed: 5})
		init, err := perturb.Theta([]float64{1, 1}, []float64{0.1, 0.1}, perturb.Options{Seed: 1})
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background(), init.Positions))
		for i := 0; i < 50; i++ {
			require.NoError(t, s.Step(context.Background()))
		}
		last, err := b.Last()
		require.NoError(t, err)
		return last.Positions.RowsView()
	}
	require.Equal(t, run(), run())
}

func TestSamplerConfigErrors(t *testing.T) {
	obj := gaussian(t, []float64{0, 0}, []float64{1, 1})
	p, _ := pool.New(1)
	defer p.Close()
	b := backend.NewMemory()

	_, err := sampler.New(3, 2, obj, b, p, sampler.Options{})
	require.ErrorIs(t, err, sampler.ErrConfig)
	_, err = sampler.New(4, 2, nil, b, p, sampler.Options{})
	require.ErrorIs(t, err, sampler.ErrConfig)
	_, err = sampler.New(4, 2, obj, b, p, sampler.Options{Moves: []sampler.WeightedMove{{Move: sampler.StretchMove{}, Weight: 0}}})
	require.ErrorIs(t, err, sampler.ErrConfig)
	_, err = sampler.New(4, 2, obj, b, p, sampler.Options{Moves: []sampler.WeightedMove{}})
	require.ErrorIs(t, err, sampler.ErrConfig)

	one := gaussian(t, []float64{0}, []float64{1})
	_, err = sampler.New(2, 1, one, b, p, sampler.Options{}) // DE needs 2 in the complement
	require.ErrorIs(t, err, sampler.ErrConfig)
	_, err = sampler.New(2, 1, one, b, p, sampler.Options{Moves: []sampler.WeightedMove{{Move: sampler.StretchMove{}, Weight: 1}}})
	require.NoError(t, err)
}

func TestSamplerInitialState(t *testing.T) {
	s, _ := newSampler(t, 4, 2, gaussian(t, []float64{0, 0}, []float64{1, 1}), sampler.Options{})
	ctx := context.Background()

	require.ErrorIs(t, s.Step(ctx), sampler.ErrNotStarted)

	flat, _ := matrix.NewDenseFromRows([][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}})
	require.ErrorIs(t, s.Start(ctx, flat), sampler.ErrInitialState)

	wrong, _ := matrix.NewDense(3, 2)
	require.ErrorIs(t, s.Start(ctx, wrong), sampler.ErrInitialState)

	tb := shape.New()
	require.NoError(t, tb.Add("x", 2))
	bounded, err := objective.NewGaussian(tb, []float64{0, 0}, []float64{1, 1}, []float64{0, 0}, []float64{10, 10})
	require.NoError(t, err)
	s2, _ := newSampler(t, 4, 2, bounded, sampler.Options{})
	outside, _ := matrix.NewDenseFromRows([][]float64{{-1, 1}, {1, 2}, {2, 1}, {3, 5}})
	require.ErrorIs(t, s2.Start(ctx, outside), sampler.ErrInitialState)
}

func TestSamplerNaNLogProb(t *testing.T) {
	tb := shape.New()
	require.NoError(t, tb.Add("x", 2))
	calls := 0
	obj, err := objective.NewFunc(func(x []float64) (float64, error) {
		calls++
		if calls > 4 {
			return math.NaN(), nil
		}
		return 0, nil
	}, tb)
	require.NoError(t, err)

	b := backend.NewMemory()
	require.NoError(t, b.Reset(4, 2))
	p, _ := pool.New(1)
	defer p.Close()
	s, err := sampler.New(4, 2, obj, b, p, sampler.Options{})
	require.NoError(t, err)
	init, _ := perturb.Theta([]float64{1, 1}, []float64{0.1, 0.1}, perturb.Options{})
	require.NoError(t, s.Start(context.Background(), init.Positions))
	require.ErrorIs(t, s.Step(context.Background()), sampler.ErrNaNLogProb)
	require.Equal(t, 0, b.Iteration())
}

// TestStretchProposal checks the stretch factor and that proposals lie on the
// line through s and the chosen complementary walker.
func TestStretchProposal(t *testing.T) {
	r := rng.New(3)
	s := [][]float64{{0, 0, 0}}
	c := [][]float64{{1, 2, 3}}
	for i := 0; i < 100; i++ {
		q, f := sampler.StretchMove{}.Propose(r, s, c)
		z := 1 - q[0][0] // q = c − (c − s)·z with c_0 = 1, s_0 = 0
		require.GreaterOrEqual(t, z, 0.5-1e-12)
		require.LessOrEqual(t, z, 2.0)
		require.InDelta(t, 2*math.Log(z), f[0], 1e-12)
		require.InDelta(t, 2*(1-z), q[0][1], 1e-12)
	}
}

func TestDEProposal(t *testing.T) {
	r := rng.New(4)
	s := [][]float64{{0, 0}}
	c := [][]float64{{1, 1}, {1, 1}}
	q, f := sampler.DEMove{}.Propose(r, s, c)
	require.Equal(t, []float64{0}, f)
	require.InDelta(t, 0, q[0][0], 1e-3) // identical pair ⇒ only σ-noise
}
