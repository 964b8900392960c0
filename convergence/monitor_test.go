// SPDX-License-Identifier: MIT

package convergence_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvmcmc/convergence"
	"github.com/stretchr/testify/require"
)

func TestMonitorNeverConvergesFirst(t *testing.T) {
	m := convergence.NewMonitor()
	require.Nil(t, m.Previous())

	st, err := m.Check([]float64{1, 1}, 1_000_000)
	require.NoError(t, err)
	require.True(t, st.LongEnough)
	require.False(t, st.Stable)
	require.False(t, st.Converged)
	require.True(t, math.IsInf(st.Drift, 1))
	require.Equal(t, []float64{1, 1}, m.Previous())
}

// TestMonitorTable replays crafted τ sequences; each step lists τ, the
// iteration and the expected verdict.
func TestMonitorTable(t *testing.T) {
	type step struct {
		tau       []float64
		iteration int
		long      bool
		stable    bool
	}
	cases := []struct {
		name  string
		steps []step
	}{
		{"stable and long", []step{
			{[]float64{2, 4}, 100, false, false},  // 4·50 = 200 ≥ 100
			{[]float64{2, 4.05}, 300, true, true}, // drift 0.025/3.025 ≈ 0.008
		}},
		{"long but drifting", []step{
			{[]float64{1, 1}, 100, true, false},
			{[]float64{1.5, 1.5}, 200, true, false}, // drift 0.333
			{[]float64{1.52, 1.52}, 300, true, true},
		}},
		{"stable but short", []step{
			{[]float64{10}, 100, false, false},
			{[]float64{10}, 499, false, true},
			{[]float64{10}, 501, true, true},
		}},
		{"boundary is strict", []step{
			{[]float64{2}, 100, false, false}, // 2·50 == 100 is not < 100
			{[]float64{2}, 100, false, true},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := convergence.NewMonitor()
			for i, s := range tc.steps {
				st, err := m.Check(s.tau, s.iteration)
				require.NoError(t, err)
				require.Equal(t, s.long, st.LongEnough, "step %d long", i)
				require.Equal(t, s.stable, st.Stable, "step %d stable", i)
				require.Equal(t, s.long && s.stable, st.Converged, "step %d converged", i)
			}
		})
	}
}

func TestMonitorKeepsPreviousOnConvergence(t *testing.T) {
	m := convergence.NewMonitor()
	_, _ = m.Check([]float64{1}, 10)
	st, err := m.Check([]float64{1}, 100)
	require.NoError(t, err)
	require.True(t, st.Converged)
	require.Equal(t, []float64{1}, m.Previous())
}

func TestMonitorZeroTauNeverStable(t *testing.T) {
	m := convergence.NewMonitor()
	_, _ = m.Check([]float64{0, 0}, 10)
	st, err := m.Check([]float64{0, 0}, 20)
	require.NoError(t, err)
	require.True(t, st.LongEnough)
	require.False(t, st.Stable)
	require.False(t, st.Converged)

	m = convergence.NewMonitor()
	_, _ = m.Check([]float64{math.NaN()}, 10)
	st, _ = m.Check([]float64{math.NaN()}, 20)
	require.False(t, st.Converged)
}

func TestMonitorOptionsAndErrors(t *testing.T) {
	m := convergence.NewMonitor(convergence.WithMultiple(10), convergence.WithFraction(0.5))
	_, _ = m.Check([]float64{2}, 30)
	st, _ := m.Check([]float64{2.5}, 30)
	require.True(t, st.Converged) // 25 < 30, drift 0.2 < 0.5

	_, err := m.Check(nil, 1)
	require.ErrorIs(t, err, convergence.ErrEmptyTau)
	_, err = m.Check([]float64{1, 2}, 1)
	require.ErrorIs(t, err, convergence.ErrDimChanged)
}
