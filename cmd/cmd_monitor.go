// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/textutils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorOptions struct {
	apiOptions

	Interval time.Duration
	DbPath   string
}

func printStatuses(statuses []traffic.RouteStatus) {
	a, b, c, d := strings.Repeat("─", 32), strings.Repeat("─", 10), strings.Repeat("─", 8), strings.Repeat("─", 40)
	fmt.Printf("╭─%-32s─┬─%-10s─┬─%8s─┬─%-40s╮\n", a, b, c, d)
	fmt.Printf("│ %-32s │ %-10s │ %8s │ %-40s│\n", "Route", "Traffic", "Duration", "Error")
	fmt.Printf("├─%-32s─┼─%-10s─┼─%8s─┼─%-40s┤\n", a, b, c, d)

	for _, s := range statuses {
		fmt.Printf("│ %-32s │ %-10s │ %8s │ %-40s│\n",
			textutils.Truncate(s.Name, 32), s.Level, formatDuration(s.DurationSec), textutils.Truncate(s.Error, 40))
	}

	fmt.Printf("╰─%-32s─┴─%-10s─┴─%8s─┴─%-40s╯\n", a, b, c, d)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Checks every configured route, once or periodically",
	Long: `Checks the routes of --config one after the other and stores each status in
the local database. With --interval the table is checked again every interval
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("db-path") {
			cfg.DBPath = monitorOptions.DbPath
		}

		if cmd.Flags().Changed("interval") {
			cfg.Interval = monitorOptions.Interval
		}

		apiKey, err := resolveAPIKey(ctx, cfg, &monitorOptions.apiOptions)
		if err != nil {
			return err
		}

		routes, err := routeTable(ctx, cfg, apiKey, &monitorOptions.apiOptions)
		if err != nil {
			return err
		}

		checker, err := newChecker(cfg, apiKey, &monitorOptions.apiOptions)
		if err != nil {
			return err
		}

		db, repo, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		origins := make(map[string]spatial.Point, len(routes))
		for _, r := range routes {
			origins[r.Name] = r.Origin
		}

		monitor := traffic.NewMonitor(checker, logger)
		if isatty.IsTerminal(os.Stderr.Fd()) {
			monitor.Progress = os.Stderr
		}

		logger.Info("monitoring routes",
			zap.Int("routes", len(routes)),
			zap.Duration("interval", cfg.Interval),
		)

		err = monitor.Watch(ctx, routes, cfg.Interval, func(statuses []traffic.RouteStatus) error {
			printStatuses(statuses)

			if err := repo.SaveStatuses(statuses, origins); err != nil {
				return fmt.Errorf("saving statuses: %w", err)
			}

			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorOptions.register(monitorCmd)
	monitorCmd.Flags().DurationVar(
		&monitorOptions.Interval,
		"interval",
		0,
		"Time between rounds, overrides the config. 0 checks the table once",
	)
	monitorCmd.Flags().StringVar(
		&monitorOptions.DbPath,
		"db-path",
		"db",
		"Directory of the local database",
	)
}
