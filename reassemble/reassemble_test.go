// SPDX-License-Identifier: MIT

package reassemble_test

import (
	"encoding/json"
	"testing"

	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/chain"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/reassemble"
	"github.com/katalvlaran/lvmcmc/rng"
	"github.com/katalvlaran/lvmcmc/settings"
	"github.com/katalvlaran/lvmcmc/shape"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func abTable(t *testing.T) *shape.Table {
	t.Helper()
	tb := shape.New()
	require.NoError(t, tb.Add("a", 1))
	require.NoError(t, tb.Add("b", 2))

	return tb
}

// TestFlatColumnOrder: {"a":[1],"b":[2]} maps columns [a, b0, b1].
func TestFlatColumnOrder(t *testing.T) {
	const n = 5
	rows := make([][]float64, n)
	for r := range rows {
		rows[r] = []float64{float64(r), 100 + float64(r), 200 + float64(r)}
	}
	flat, err := matrix.NewDenseFromRows(rows)
	require.NoError(t, err)

	s, err := reassemble.Flat(flat, abTable(t))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, s.Names())
	require.Equal(t, n, s.Len())

	a, ok := s.Scalar("a")
	require.True(t, ok)
	require.Equal(t, []float64{0, 1, 2, 3, 4}, a)

	b, ok := s.Components("b")
	require.True(t, ok)
	require.Len(t, b, 2)
	require.Equal(t, []float64{100, 101, 102, 103, 104}, b[0])
	require.Equal(t, []float64{200, 201, 202, 203, 204}, b[1])

	_, ok = s.Scalar("b")
	require.False(t, ok)
	_, ok = s.Components("a")
	require.False(t, ok)

	m := s.Map()
	require.Len(t, m, 2)
	require.IsType(t, []float64{}, m["a"])
	require.IsType(t, [][]float64{}, m["b"])
}

func TestFlatMultiDimAndErrors(t *testing.T) {
	tb := shape.New()
	require.NoError(t, tb.Add("m", 2, 2))
	require.NoError(t, tb.Add("u", 1, 1))
	flat, _ := matrix.NewDenseFromRows([][]float64{{1, 2, 3, 4, 5}})

	s, err := reassemble.Flat(flat, tb)
	require.NoError(t, err)
	m, ok := s.Components("m")
	require.True(t, ok)
	require.Equal(t, [][]float64{{1}, {2}, {3}, {4}}, m)
	u, ok := s.Components("u") // [1 1] is not scalar
	require.True(t, ok)
	require.Equal(t, [][]float64{{5}}, u)

	wrong, _ := matrix.NewDenseFromRows([][]float64{{1, 2}})
	_, err = reassemble.Flat(wrong, tb)
	require.ErrorIs(t, err, shape.ErrDimMismatch)
	_, err = reassemble.Flat(flat, nil)
	require.ErrorIs(t, err, reassemble.ErrNoShapes)
}

func TestSamplesJSONOrderAndMerge(t *testing.T) {
	flat, _ := matrix.NewDenseFromRows([][]float64{{1, 2, 3}})
	tb := shape.New()
	require.NoError(t, tb.Add("z", 1))
	require.NoError(t, tb.Add("b", 2))
	s, err := reassemble.Flat(flat, tb)
	require.NoError(t, err)

	require.ErrorIs(t, s.Merge(map[string]any{"z": 1}), reassemble.ErrKeyCollision)
	require.NoError(t, s.Merge(map[string]any{"start": "2020-03-15", "n": 2}))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	require.Equal(t, `{"z":[1],"b":[[2],[3]],"n":2,"start":"2020-03-15"}`, string(raw))
}

// fill appends steps iterations of seeded noise to a fresh memory backend.
func fill(t *testing.T, steps, walkers, dims int) backend.Backend {
	t.Helper()
	b := backend.NewMemory()
	require.NoError(t, b.Reset(walkers, dims))
	r := rng.New(9)
	for s := 0; s < steps; s++ {
		m, _ := matrix.NewDense(walkers, dims)
		for w := 0; w < walkers; w++ {
			for d := 0; d < dims; d++ {
				require.NoError(t, m.Set(w, d, r.NormFloat64()))
			}
		}
		require.NoError(t, b.Append(chain.Step{Positions: m, LogProb: make([]float64, walkers), Accepted: make([]bool, walkers)}))
	}

	return b
}

func doc(t *testing.T) *settings.Document {
	t.Helper()
	d := settings.New()
	d.SetShapes(abTable(t))
	require.NoError(t, d.Set("start_calibration", "2020-03-15"))

	return d
}

// TestFromBackendFallsBackOnShortChain: an unavailable estimate yields thin=1,
// a warning and no error.
func TestFromBackendFallsBackOnShortChain(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := fill(t, 20, 6, 3)

	res, err := reassemble.FromBackend(b, doc(t), reassemble.Options{Logger: zap.New(core)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Thin)
	require.False(t, res.Reliable)
	require.Equal(t, 20*6, res.Samples.Len())
	require.Equal(t, 1, logs.Len())

	v, ok := res.Samples.Settings()["start_calibration"]
	require.True(t, ok)
	require.Equal(t, "2020-03-15", v)
	_, ok = res.Samples.Settings()[settings.ShapesKey]
	require.False(t, ok)
}

func TestFromBackendAutoThinReliable(t *testing.T) {
	b := fill(t, 400, 6, 3) // white noise, τ ≈ 1
	thin, ok := reassemble.AutoThin(b, nil)
	require.True(t, ok)
	require.Equal(t, 1, thin)

	res, err := reassemble.FromBackend(b, doc(t), reassemble.Options{Discard: 100})
	require.NoError(t, err)
	require.True(t, res.Reliable)
	require.Equal(t, 300*6, res.Samples.Len())
}

func TestFromBackendExplicitThin(t *testing.T) {
	b := fill(t, 10, 6, 3)
	res, err := reassemble.FromBackend(b, doc(t), reassemble.Options{Discard: 2, Thin: 3})
	require.NoError(t, err)
	require.Equal(t, 3, res.Thin)
	require.True(t, res.Reliable)
	// iterations 4, 7
	require.Equal(t, 2*6, res.Samples.Len())

	_, err = reassemble.FromBackend(b, settings.New(), reassemble.Options{})
	require.ErrorIs(t, err, reassemble.ErrNoShapes)

}

// TestFromBackendDiscardEverything keeps every parameter with empty series.
func TestFromBackendDiscardEverything(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := fill(t, 10, 6, 3)

	res, err := reassemble.FromBackend(b, doc(t), reassemble.Options{Discard: 10, Thin: 1, Logger: zap.New(core)})
	require.NoError(t, err)
	require.Equal(t, 0, res.Samples.Len())
	require.Equal(t, []string{"a", "b"}, res.Samples.Names())
	a, ok := res.Samples.Scalar("a")
	require.True(t, ok)
	require.Empty(t, a)
	comps, ok := res.Samples.Components("b")
	require.True(t, ok)
	require.Len(t, comps, 2)
	require.Equal(t, 1, logs.FilterMessage("no draws retained after discard and thinning").Len())

	raw, err := json.Marshal(res.Samples)
	require.NoError(t, err)
	require.Equal(t, `{"a":[],"b":[[],[]],"start_calibration":"2020-03-15"}`, string(raw))

	_, err = reassemble.FromBackend(b, doc(t), reassemble.Options{Discard: 50, Thin: 1})
	require.NoError(t, err)
}
