// SPDX-License-Identifier: MIT

// Command lvmcmc runs ensemble MCMC sessions described by a YAML run file and
// reassembles their chains into named parameter samples.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/katalvlaran/lvmcmc/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0-dev"

// app carries state shared by subcommands.
type app struct {
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	rootCmd := &cobra.Command{
		Use:   "lvmcmc",
		Short: "Ensemble MCMC session driver",
		Long: `lvmcmc initializes a walker ensemble around a point estimate, runs an
affine-invariant ensemble sampler until the chain converges or the iteration
budget is spent, and writes the thinned chain as named parameter samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			return a.setLogger(level, format)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default: logging.level)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or console (default: logging.format)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newSamplesCmd(a),
	)

	return rootCmd
}

func (a *app) setLogger(level, format string) error {
	logger, err := logging.New(level, format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	return nil
}
