// SPDX-License-Identifier: MIT

// Package driver runs a sampling session: it sizes or resumes the backend,
// steps the ensemble sampler up to a maximum number of iterations and, every
// Period iterations, renders diagnostics and consults a convergence monitor,
// stopping as soon as the chain has converged.
//
// Iterations are strictly sequential. Each one blocks on the worker pool and
// on the backend write before the next begins, so stopping at any point
// leaves a resumable chain. Errors from the sampler are returned as is,
// together with the sampler handle.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/convergence"
	"github.com/katalvlaran/lvmcmc/diagnostics"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/objective"
	"github.com/katalvlaran/lvmcmc/pool"
	"github.com/katalvlaran/lvmcmc/rng"
	"github.com/katalvlaran/lvmcmc/sampler"
	"github.com/katalvlaran/lvmcmc/settings"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultPeriod is the diagnostic period in iterations.
const DefaultPeriod = 10

var (
	// ErrConfig indicates an incomplete or inconsistent Config.
	ErrConfig = errors.New("driver: invalid configuration")
)

// Config describes one session.
type Config struct {
	Identifier string
	Date       string

	// Positions is the initial W×D walker matrix. Ignored when Resume is set.
	Positions *matrix.Dense
	// Resume continues from the last stored iteration of a prior backend,
	// which then also receives the new iterations.
	Resume backend.Backend
	// Backend receives a fresh chain; nil ⇒ backend.NewMemory().
	Backend backend.Backend

	MaxIterations int
	Period        int // 0 ⇒ DefaultPeriod
	Processes     int // 0 ⇒ 1; capped at the walker count

	Objective objective.Objective
	Moves     []sampler.WeightedMove
	Renderer  diagnostics.Renderer // nil ⇒ diagnostics.Estimator{}
	Monitor   *convergence.Monitor // nil ⇒ convergence.NewMonitor()

	// Settings, when set together with Store, is written before the first
	// iteration with the objective's shape table under the reserved key.
	Settings *settings.Document
	Store    *settings.FileStore

	Seed   uint64
	Logger *zap.Logger
}

// Run executes the session and returns the sampler, whose backend holds the chain.
func Run(ctx context.Context, cfg Config) (*sampler.Sampler, error) {
	if cfg.Objective == nil {
		return nil, fmt.Errorf("Run: objective is required: %w", ErrConfig)
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("Run: max iterations %d: %w", cfg.MaxIterations, ErrConfig)
	}
	if err := checkSettings(cfg); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	period := cfg.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = diagnostics.Estimator{}
	}
	monitor := cfg.Monitor
	if monitor == nil {
		monitor = convergence.NewMonitor()
	}

	store, pos, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	nwalkers, ndim := pos.Rows(), pos.Cols()

	processes := cfg.Processes
	if processes < 1 {
		processes = 1
	}
	if processes > nwalkers {
		processes = nwalkers
	}
	workers, err := pool.New(processes)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}
	defer workers.Close()

	s, err := sampler.New(nwalkers, ndim, cfg.Objective, store, workers, sampler.Options{
		Moves:  cfg.Moves,
		// a resumed session continues on a fresh stream
		Seed:   rng.Mix(cfg.Seed, uint64(store.Iteration())),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	if cfg.Settings != nil && cfg.Store != nil {
		cfg.Settings.SetShapes(cfg.Objective.ParameterShapes())
		if err = cfg.Store.SaveSettings(cfg.Identifier, cfg.Date, cfg.Settings); err != nil {
			return nil, fmt.Errorf("Run: %w", err)
		}
	}

	logger.Info("running ensemble sampler",
		zap.String("identifier", cfg.Identifier),
		zap.Int("processes", processes),
		zap.Int("ndim", ndim),
		zap.Int("nwalkers", nwalkers),
		zap.Bool("resume", cfg.Resume != nil),
		zap.Int("start_iteration", store.Iteration()),
		zap.Int("max_iterations", cfg.MaxIterations))

	if err = s.Start(ctx, pos); err != nil {
		return s, err
	}

	labels := labelsFor(cfg.Objective, ndim)
	for i := 0; i < cfg.MaxIterations; i++ {
		if err = ctx.Err(); err != nil {
			return s, err
		}
		if err = s.Step(ctx); err != nil {
			return s, err
		}

		it := s.Iteration()
		if it%period != 0 {
			continue
		}
		c, err := s.Chain(0, 1)
		if err != nil {
			return s, err
		}
		tau, err := renderer.Render(c, labels)
		if err != nil {
			return s, err
		}
		st, err := monitor.Check(tau, it)
		if err != nil {
			return s, err
		}
		logger.Info("diagnostics",
			zap.Int("iteration", it),
			zap.Float64("max_tau", st.MaxTau),
			zap.Float64("mean_tau", st.MeanTau),
			zap.Float64("drift", st.Drift),
			zap.Float64("acceptance", stat.Mean(s.AcceptanceFraction(), nil)),
			zap.Bool("converged", st.Converged))
		if st.Converged {
			logger.Info("chain converged, stopping", zap.Int("iteration", it))
			break
		}
	}

	logger.Info("sampling finished",
		zap.Int("iterations", s.Iteration()),
		zap.Float64("acceptance", stat.Mean(s.AcceptanceFraction(), nil)))

	return s, nil
}

// prepare resolves the store and the starting positions.
func prepare(cfg Config) (backend.Backend, *matrix.Dense, error) {
	if cfg.Resume != nil {
		last, err := cfg.Resume.Last()
		if err != nil {
			return nil, nil, fmt.Errorf("Run: resume: %w", err)
		}
		return cfg.Resume, last.Positions, nil
	}

	if err := matrix.ValidateNotNil(cfg.Positions); err != nil {
		return nil, nil, fmt.Errorf("Run: initial positions: %w", ErrConfig)
	}
	store := cfg.Backend
	if store == nil {
		store = backend.NewMemory()
	}
	if err := store.Reset(cfg.Positions.Rows(), cfg.Positions.Cols()); err != nil {
		return nil, nil, fmt.Errorf("Run: %w", err)
	}

	return store, cfg.Positions, nil
}

// checkSettings rejects settings fields that would shadow a parameter in the
// reassembled samples, before any iteration is spent.
func checkSettings(cfg Config) error {
	shapes := cfg.Objective.ParameterShapes()
	if cfg.Settings == nil || shapes == nil {
		return nil
	}
	for _, k := range cfg.Settings.Keys() {
		if _, ok := shapes.Shape(k); ok {
			return fmt.Errorf("Run: settings field %q is also a parameter name: %w", k, ErrConfig)
		}
	}

	return nil
}

func labelsFor(obj objective.Objective, ndim int) []string {
	labels := obj.ExpandedLabels()
	if len(labels) == ndim {
		return labels
	}
	labels = make([]string, ndim)
	for i := range labels {
		labels[i] = "theta_" + strconv.Itoa(i)
	}

	return labels
}
