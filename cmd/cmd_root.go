// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootOptions struct {
	ConfigPath string
	Verbose    bool
}

// logger is built before any command runs. Until then it discards everything.
var logger = zap.NewNop()

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	return cfg.Build()
}

var rootCmd = &cobra.Command{
	Use:   "trafficmap",
	Short: "traffic levels for driving routes",
	Long: `
trafficmap asks the Google Routes API how long a driving route takes right now
and reports it as NORMAL, MODERATE or HEAVY traffic according to the thresholds
configured for that route.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := newLogger(rootOptions.Verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}

		logger = l
		zap.RedirectStdLog(logger)

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

var Version = "dev"

func userAgent() string {
	return fmt.Sprintf("trafficmap/%s (+https://github.com/jcodagnone/trafficmap)", Version)
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.ConfigPath,
		"config",
		"",
		"Route table and settings (YAML or JSON). TRAFFICMAP_* variables override it",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&rootOptions.Verbose,
		"verbose",
		"v",
		false,
		"Debug logging",
	)
}
