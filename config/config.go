// SPDX-License-Identifier: MIT

// Package config loads the YAML run file of the lvmcmc command.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/katalvlaran/lvmcmc/objective"
	"github.com/katalvlaran/lvmcmc/perturb"
	"github.com/katalvlaran/lvmcmc/sampler"
	"github.com/katalvlaran/lvmcmc/shape"
	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full run configuration.
type Config struct {
	// Identifier names the run's artifacts. Empty ⇒ a random UUID is assigned by the CLI.
	Identifier string `json:"identifier" yaml:"identifier"`

	// SamplesDir holds settings, backend and samples files.
	SamplesDir string `json:"samples_dir" yaml:"samples_dir"`

	// FigDir holds the autocorrelation and trace plots. Empty disables plots.
	FigDir string `json:"fig_dir" yaml:"fig_dir"`

	// RunDate stamps artifact names. Empty ⇒ today (YYYY-MM-DD).
	RunDate string `json:"run_date" yaml:"run_date"`

	Sampler SamplerConfig `json:"sampler" yaml:"sampler"`
	Init    InitConfig    `json:"init" yaml:"init"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Model   ModelConfig   `json:"model" yaml:"model"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SamplerConfig configures the sampling loop.
type SamplerConfig struct {
	MaxIterations int          `json:"max_iterations" yaml:"max_iterations"`
	PrintEvery    int          `json:"print_every" yaml:"print_every"`
	Processes     int          `json:"processes" yaml:"processes"`
	Seed          uint64       `json:"seed" yaml:"seed"`
	Backend       string       `json:"backend" yaml:"backend"`
	Moves         []MoveConfig `json:"moves,omitempty" yaml:"moves,omitempty"`
}

// MoveConfig selects a proposal move ("de" or "stretch") and its weight.
type MoveConfig struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// InitConfig configures walker initialization. Empty Theta ⇒ model means;
// empty Pert ⇒ 0.1 per dimension.
type InitConfig struct {
	Theta      []float64       `json:"theta,omitempty" yaml:"theta,omitempty"`
	Pert       []float64       `json:"pert,omitempty" yaml:"pert,omitempty"`
	Bounds     []perturb.Bound `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Multiplier int             `json:"multiplier" yaml:"multiplier"`
	Retries    int             `json:"retries" yaml:"retries"`
}

// OutputConfig configures reassembly. Thin 0 ⇒ automatic.
type OutputConfig struct {
	Discard int `json:"discard" yaml:"discard"`
	Thin    int `json:"thin" yaml:"thin"`
}

// ModelConfig describes the bundled Gaussian objective.
type ModelConfig struct {
	Parameters []ParameterConfig `json:"parameters" yaml:"parameters"`
}

// ParameterConfig is one named parameter block. Mean and Sigma hold one
// value per flattened element; Lower/Upper are optional.
type ParameterConfig struct {
	Name  string    `json:"name" yaml:"name"`
	Shape []int     `json:"shape" yaml:"shape"`
	Mean  []float64 `json:"mean" yaml:"mean"`
	Sigma []float64 `json:"sigma" yaml:"sigma"`
	Lower []float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty" yaml:"upper,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level: "debug", "info" (default), "warn" or "error".
	Level string `json:"level" yaml:"level"`
	// Format: "json" (default) or "console".
	Format string `json:"format" yaml:"format"`
}

// Default returns a Config with sensible defaults and no model.
func Default() *Config {
	return &Config{
		SamplesDir: "samples",
		FigDir:     "",
		Sampler: SamplerConfig{
			MaxIterations: 1000,
			PrintEvery:    10,
			Processes:     1,
			Backend:       BackendSQLite,
		},
		Init: InitConfig{
			Multiplier: perturb.DefaultMultiplier,
			Retries:    perturb.DefaultRetries,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML file over Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Date returns RunDate or today's date.
func (c *Config) Date() string {
	if c.RunDate != "" {
		return c.RunDate
	}

	return time.Now().Format("2006-01-02")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Sampler.MaxIterations < 0 {
		return fmt.Errorf("%w: sampler.max_iterations must be >= 0", ErrInvalid)
	}
	if c.Sampler.PrintEvery < 1 {
		return fmt.Errorf("%w: sampler.print_every must be >= 1", ErrInvalid)
	}
	switch c.Sampler.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: sampler.backend %q (want sqlite or memory)", ErrInvalid, c.Sampler.Backend)
	}
	if _, err := c.Moves(); err != nil {
		return err
	}
	if c.Output.Discard < 0 || c.Output.Thin < 0 {
		return fmt.Errorf("%w: output.discard and output.thin must be >= 0", ErrInvalid)
	}
	if len(c.Model.Parameters) == 0 {
		return fmt.Errorf("%w: model.parameters is empty", ErrInvalid)
	}
	t, err := c.ShapeTable()
	if err != nil {
		return err
	}
	if _, err = c.Objective(); err != nil {
		return err
	}
	d := t.Dim()
	if n := len(c.Init.Theta); n != 0 && n != d {
		return fmt.Errorf("%w: init.theta has %d values for %d dimensions", ErrInvalid, n, d)
	}
	if n := len(c.Init.Pert); n != 0 && n != d {
		return fmt.Errorf("%w: init.pert has %d values for %d dimensions", ErrInvalid, n, d)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

// ShapeTable builds the parameter table in file order.
func (c *Config) ShapeTable() (*shape.Table, error) {
	t := shape.New()
	for _, p := range c.Model.Parameters {
		s := p.Shape
		if len(s) == 0 {
			s = []int{1}
		}
		if err := t.Add(p.Name, s...); err != nil {
			return nil, fmt.Errorf("%w: model.parameters: %v", ErrInvalid, err)
		}
	}

	return t, nil
}

// Objective builds the bundled Gaussian model.
func (c *Config) Objective() (*objective.Gaussian, error) {
	t, err := c.ShapeTable()
	if err != nil {
		return nil, err
	}
	var mean, sigma, lower, upper []float64
	bounded := false
	for _, p := range c.Model.Parameters {
		if len(p.Lower) > 0 || len(p.Upper) > 0 {
			bounded = true
		}
	}
	for _, p := range c.Model.Parameters {
		mean = append(mean, p.Mean...)
		sigma = append(sigma, p.Sigma...)
		if bounded {
			lower = append(lower, fill(p.Lower, len(p.Mean), math.Inf(-1))...)
			upper = append(upper, fill(p.Upper, len(p.Mean), math.Inf(1))...)
		}
	}
	g, err := objective.NewGaussian(t, mean, sigma, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return g, nil
}

// Theta returns the initial estimate and relative perturbations.
func (c *Config) Theta() (theta, pert []float64) {
	theta = c.Init.Theta
	if len(theta) == 0 {
		for _, p := range c.Model.Parameters {
			theta = append(theta, p.Mean...)
		}
	}
	pert = c.Init.Pert
	if len(pert) == 0 {
		pert = fill(nil, len(theta), 0.1)
	}

	return theta, pert
}

// Moves converts the move list; empty ⇒ sampler.DefaultMoves().
func (c *Config) Moves() ([]sampler.WeightedMove, error) {
	if len(c.Sampler.Moves) == 0 {
		return sampler.DefaultMoves(), nil
	}
	out := make([]sampler.WeightedMove, 0, len(c.Sampler.Moves))
	for _, m := range c.Sampler.Moves {
		var mv sampler.Move
		switch m.Name {
		case "de":
			mv = sampler.DEMove{}
		case "stretch":
			mv = sampler.StretchMove{}
		default:
			return nil, fmt.Errorf("%w: unknown move %q", ErrInvalid, m.Name)
		}
		if !(m.Weight > 0) {
			return nil, fmt.Errorf("%w: move %q weight must be > 0", ErrInvalid, m.Name)
		}
		out = append(out, sampler.WeightedMove{Move: mv, Weight: m.Weight})
	}

	return out, nil
}

// fill returns xs when it has n entries, else n copies of v.
func fill(xs []float64, n int, v float64) []float64 {
	if len(xs) == n {
		return xs
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}
