// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/textutils"
	"github.com/spf13/cobra"
)

var historyOptions struct {
	Limit  int
	DbPath string
}

var historyCmd = &cobra.Command{
	Use:   "history <route>",
	Short: "Shows the stored checks of a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("db-path") {
			cfg.DBPath = historyOptions.DbPath
		}

		db, repo, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := repo.Summary(args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("route %q was never checked", args[0])
		}

		if err != nil {
			return fmt.Errorf("summarizing route: %w", err)
		}

		records, err := repo.History(args[0], historyOptions.Limit)
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}

		fmt.Printf("%s: %s checks since %s\n",
			summary.Route, textutils.FormatInt(int64(summary.Checks)), summary.Since.Local().Format("2006-01-02 15:04"))

		for _, level := range []traffic.Level{
			traffic.LevelNormal, traffic.LevelModerate, traffic.LevelHeavy, traffic.LevelError,
		} {
			fmt.Printf("  %s %-9s %s\n", levelIcons[level], level, textutils.FormatInt(int64(summary.Levels[level])))
		}

		fmt.Printf("  avg %s, min %s, max %s\n\n",
			formatDuration(int(summary.AvgDurationSec)),
			formatDuration(summary.MinDurationSec),
			formatDuration(summary.MaxDurationSec),
		)

		for _, r := range records {
			fmt.Printf("%s\t%s %-9s\t%s\t%s\n",
				r.CheckedAt.Local().Format("2006-01-02 15:04:05"),
				levelIcons[r.Level], r.Level, formatDuration(r.DurationSec), r.Error)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyOptions.Limit, "limit", 20, "Number of checks to show. 0 shows all")
	historyCmd.Flags().StringVar(&historyOptions.DbPath, "db-path", "db", "Directory of the local database")
}
