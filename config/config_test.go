// SPDX-License-Identifier: MIT

package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/katalvlaran/lvmcmc/config"
	"github.com/stretchr/testify/require"
)

const runFile = `
identifier: demo
samples_dir: out/samples
fig_dir: out/fig
run_date: "2024-02-03"
sampler:
  max_iterations: 200
  print_every: 20
  processes: 2
  seed: 7
  backend: memory
  moves:
    - {name: de, weight: 0.8}
    - {name: stretch, weight: 0.2}
init:
  pert: [0.05, 0.1, 0.1]
  multiplier: 3
output:
  discard: 50
model:
  parameters:
    - {name: beta, shape: [1], mean: [0.5], sigma: [0.1], lower: [0], upper: [1]}
    - {name: f, shape: [2], mean: [1, 2], sigma: [1, 1]}
logging:
  level: debug
  format: console
`

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	return p
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(write(t, runFile))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "demo", cfg.Identifier)
	require.Equal(t, "2024-02-03", cfg.Date())
	require.Equal(t, 200, cfg.Sampler.MaxIterations)
	require.Equal(t, 3, cfg.Init.Multiplier)
	require.Equal(t, 20, cfg.Init.Retries) // default kept

	tb, err := cfg.ShapeTable()
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "f_0", "f_1"}, tb.Labels())

	theta, pert := cfg.Theta()
	require.Equal(t, []float64{0.5, 1, 2}, theta)
	require.Equal(t, []float64{0.05, 0.1, 0.1}, pert)

	moves, err := cfg.Moves()
	require.NoError(t, err)
	require.Len(t, moves, 2)
	require.Equal(t, "de", moves[0].Move.Name())

	g, err := cfg.Objective()
	require.NoError(t, err)
	lp, err := g.LogProb([]float64{2, 1, 2}) // beta above its upper bound
	require.NoError(t, err)
	require.True(t, math.IsInf(lp, -1))
	lp, err = g.LogProb([]float64{0.5, 100, 2}) // f is unbounded
	require.NoError(t, err)
	require.False(t, math.IsInf(lp, 0))
}

func TestDefaultsAndValidate(t *testing.T) {
	cfg := config.Default()
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalid) // no model

	cfg.Model.Parameters = []config.ParameterConfig{{Name: "x", Mean: []float64{1}, Sigma: []float64{1}}}
	require.NoError(t, cfg.Validate())
	theta, pert := cfg.Theta()
	require.Equal(t, []float64{1}, theta)
	require.Equal(t, []float64{0.1}, pert)
	require.Len(t, cfg.Date(), len("2006-01-02"))

	bad := *cfg
	bad.Sampler.Backend = "hdf5"
	require.ErrorIs(t, bad.Validate(), config.ErrInvalid)

	bad = *cfg
	bad.Sampler.Moves = []config.MoveConfig{{Name: "kde", Weight: 1}}
	require.ErrorIs(t, bad.Validate(), config.ErrInvalid)

	bad = *cfg
	bad.Init.Theta = []float64{1, 2}
	require.ErrorIs(t, bad.Validate(), config.ErrInvalid)

	bad = *cfg
	bad.Model.Parameters = []config.ParameterConfig{{Name: "x"}, {Name: "x"}}
	require.ErrorIs(t, bad.Validate(), config.ErrInvalid)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	_, err = config.Load(write(t, "sampler: [oops"))
	require.Error(t, err)
}
