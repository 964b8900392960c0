// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/config"
	"github.com/katalvlaran/lvmcmc/settings"
	"github.com/spf13/cobra"
)

func newSamplesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Reassemble a stored sqlite chain into named samples",
		Long: `Reads <samples_dir>/<id>_SETTINGS_<date>.json and the matching sqlite
backend, discards and thins the chain (automatic thinning when output.thin is 0)
and writes <samples_dir>/<id>_SAMPLES_<date>.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Identifier == "" {
				return errors.New("samples: an identifier is required (--identifier or identifier:)")
			}
			if cfg.Sampler.Backend != config.BackendSQLite {
				return fmt.Errorf("samples: backend %q is not persistent", cfg.Sampler.Backend)
			}
			if cmd.Flags().Changed("discard") {
				cfg.Output.Discard, _ = cmd.Flags().GetInt("discard")
			}
			if cmd.Flags().Changed("thin") {
				cfg.Output.Thin, _ = cmd.Flags().GetInt("thin")
			}

			id, date := cfg.Identifier, cfg.Date()
			store := settings.FileStore{Dir: cfg.SamplesDir}
			b, err := backend.OpenSQLite(store.BackendPath(id, date), id)
			if err != nil {
				return err
			}
			defer b.Close()

			return a.finalize(cmd, store, b, id, date, cfg.Output)
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().Int("discard", 0, "Override output.discard")
	cmd.Flags().Int("thin", 0, "Override output.thin (0 = automatic)")

	return cmd
}
