// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/config"
	"github.com/katalvlaran/lvmcmc/diagnostics"
	"github.com/katalvlaran/lvmcmc/driver"
	"github.com/katalvlaran/lvmcmc/perturb"
	"github.com/katalvlaran/lvmcmc/reassemble"
	"github.com/katalvlaran/lvmcmc/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sampling session and write its samples",
		Long: `Loads the run file, perturbs the initial estimate into a walker ensemble,
samples until convergence or max_iterations, then reassembles the chain into
<samples_dir>/<id>_SAMPLES_<date>.json.

With --resume and the sqlite backend, an existing chain for the same
identifier and date is continued instead of starting over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			resume, _ := cmd.Flags().GetBool("resume")
			skip, _ := cmd.Flags().GetBool("no-samples")
			return a.runSession(cmd, cfg, resume, !skip)
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().Int("max-iterations", 0, "Override sampler.max_iterations")
	cmd.Flags().Int("processes", 0, "Override sampler.processes")
	cmd.Flags().Uint64("seed", 0, "Override sampler.seed")
	cmd.Flags().Bool("resume", false, "Continue an existing sqlite chain")
	cmd.Flags().Bool("no-samples", false, "Keep the settings file and skip reassembly")

	return cmd
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "lvmcmc.yaml", "Path to the YAML run file")
	cmd.Flags().String("identifier", "", "Override the run identifier")
	cmd.Flags().String("run-date", "", "Override the run date (YYYY-MM-DD)")
}

// loadConfig reads the run file, applies flag overrides and rebuilds the
// logger from the file's logging section where no flag overrides it.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("identifier"); v != "" {
		cfg.Identifier = v
	}
	if v, _ := flags.GetString("run-date"); v != "" {
		cfg.RunDate = v
	}
	if flags.Changed("max-iterations") {
		cfg.Sampler.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("processes") {
		cfg.Sampler.Processes, _ = flags.GetInt("processes")
	}
	if flags.Changed("seed") {
		cfg.Sampler.Seed, _ = flags.GetUint64("seed")
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	if level == "" {
		level = cfg.Logging.Level
	}
	if format == "" {
		format = cfg.Logging.Format
	}
	if err = a.setLogger(level, format); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (a *app) runSession(cmd *cobra.Command, cfg *config.Config, resume, writeSamples bool) error {
	logger := a.logger
	if cfg.Identifier == "" {
		cfg.Identifier = uuid.New().String()
	}
	id, date := cfg.Identifier, cfg.Date()
	store := settings.FileStore{Dir: cfg.SamplesDir}

	obj, err := cfg.Objective()
	if err != nil {
		return err
	}
	moves, err := cfg.Moves()
	if err != nil {
		return err
	}
	theta, pert := cfg.Theta()

	doc := settings.New()
	for _, kv := range []struct {
		key string
		val any
	}{
		{"identifier", id},
		{"run_date", date},
		{"initial_theta", theta},
		{"perturbation", pert},
		{"multiplier", cfg.Init.Multiplier},
		{"max_iterations", cfg.Sampler.MaxIterations},
		{"seed", cfg.Sampler.Seed},
	} {
		if err = doc.Set(kv.key, kv.val); err != nil {
			return err
		}
	}

	dcfg := driver.Config{
		Identifier:    id,
		Date:          date,
		MaxIterations: cfg.Sampler.MaxIterations,
		Period:        cfg.Sampler.PrintEvery,
		Processes:     cfg.Sampler.Processes,
		Objective:     obj,
		Moves:         moves,
		Renderer:      diagnostics.Estimator{},
		Settings:      doc,
		Store:         &store,
		Seed:          cfg.Sampler.Seed,
		Logger:        logger,
	}
	if cfg.FigDir != "" {
		dcfg.Renderer = diagnostics.NewSVG(cfg.FigDir, id, date)
	}

	var b backend.Backend
	if cfg.Sampler.Backend == config.BackendMemory {
		b = backend.NewMemory()
	} else {
		s, err := backend.OpenSQLite(store.BackendPath(id, date), id)
		if err != nil {
			return err
		}
		b = s
	}
	defer b.Close()

	if resume && b.Iteration() > 0 {
		logger.Info("resuming chain", zap.String("identifier", id), zap.Int("iteration", b.Iteration()))
		dcfg.Resume = b
	} else {
		start, err := perturb.Theta(theta, pert, perturb.Options{
			Multiplier: cfg.Init.Multiplier,
			Bounds:     cfg.Init.Bounds,
			Retries:    cfg.Init.Retries,
			Seed:       cfg.Sampler.Seed,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		dcfg.Positions = start.Positions
		dcfg.Backend = b
	}

	if _, err = driver.Run(cmd.Context(), dcfg); err != nil {
		return err
	}
	if !writeSamples {
		return nil
	}

	return a.finalize(cmd, store, b, id, date, cfg.Output)
}

// finalize reassembles the chain, writes the samples file and removes the
// settings file.
func (a *app) finalize(cmd *cobra.Command, store settings.FileStore, b backend.Backend, id, date string, out config.OutputConfig) error {
	doc, err := store.LoadSettings(id, date)
	if err != nil {
		return err
	}
	res, err := reassemble.FromBackend(b, doc, reassemble.Options{
		Discard: out.Discard,
		Thin:    out.Thin,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	if err = store.SaveSamples(id, date, res.Samples); err != nil {
		return err
	}
	if err = store.RemoveSettings(id, date); err != nil {
		return err
	}

	path := store.SamplesPath(id, date)
	a.logger.Info("samples written",
		zap.String("path", path),
		zap.Int("draws", res.Samples.Len()),
		zap.Int("thin", res.Thin),
		zap.Bool("reliable", res.Reliable))
	fmt.Fprintln(cmd.OutOrStdout(), path)

	return nil
}
