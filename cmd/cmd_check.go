// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/spf13/cobra"
)

var checkOptions struct {
	apiOptions

	Origin      string
	Destination string
	Via         []string
	LowerSec    int
	UpperSec    int
}

var levelIcons = map[traffic.Level]string{
	traffic.LevelNormal:   "🟢",
	traffic.LevelModerate: "🟡",
	traffic.LevelHeavy:    "🔴",
	traffic.LevelError:    "⚠️",
}

// parseRoute turns the textual waypoints of a route into a request.
func parseRoute(origin, destination string, via []string) (traffic.RouteRequest, error) {
	var (
		req traffic.RouteRequest
		err error
	)

	if req.Origin, err = spatial.ParsePoint(origin); err != nil {
		return req, fmt.Errorf("--origin: %w", err)
	}

	if req.Destination, err = spatial.ParsePoint(destination); err != nil {
		return req, fmt.Errorf("--destination: %w", err)
	}

	for _, v := range via {
		p, err := spatial.ParsePoint(v)
		if err != nil {
			return req, fmt.Errorf("--via: %w", err)
		}

		req.Intermediates = append(req.Intermediates, p)
	}

	return req, nil
}

func formatDuration(durationSec int) string {
	if durationSec < 0 {
		return "-"
	}

	return fmt.Sprintf("%dm%02ds", durationSec/60, durationSec%60)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Checks the traffic of a single route",
	Long: `Asks for the current driving time between two points, optionally through
intermediate waypoints, and classifies it against the thresholds.

$ trafficmap check --origin -34.9059,-56.1913 --destination -34.8870,-56.0560 --lower 900 --upper 1500
🟡 MODERATE	20m03s	(1203 s)
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := parseRoute(checkOptions.Origin, checkOptions.Destination, checkOptions.Via)
		if err != nil {
			return err
		}

		thresholds := traffic.Thresholds{LowerSec: checkOptions.LowerSec, UpperSec: checkOptions.UpperSec}
		if thresholds.Inverted() {
			logger.Warn(fmt.Sprintf("--lower %d > --upper %d, MODERATE is unreachable",
				thresholds.LowerSec, thresholds.UpperSec))
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		apiKey, err := resolveAPIKey(cmd.Context(), cfg, &checkOptions.apiOptions)
		if err != nil {
			return err
		}

		checker, err := newChecker(cfg, apiKey, &checkOptions.apiOptions)
		if err != nil {
			return err
		}

		result := checker.Check(cmd.Context(), req, thresholds)
		fmt.Printf("%s %s\t%s\t(%d s)\n",
			levelIcons[result.Level], result.Level, formatDuration(result.DurationSec), result.DurationSec)

		if !result.OK() {
			return result.Err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkOptions.register(checkCmd)
	checkCmd.Flags().StringVar(&checkOptions.Origin, "origin", "", "Origin as lat,lng")
	checkCmd.Flags().StringVar(&checkOptions.Destination, "destination", "", "Destination as lat,lng")
	checkCmd.Flags().StringArrayVar(&checkOptions.Via, "via", nil, "Intermediate waypoint as lat,lng, in travel order. Repeatable")
	checkCmd.Flags().IntVar(&checkOptions.LowerSec, "lower", 0, "Durations under this many seconds are NORMAL")
	checkCmd.Flags().IntVar(&checkOptions.UpperSec, "upper", 0, "Durations under this many seconds are MODERATE, the rest HEAVY")

	for _, f := range []string{"origin", "destination", "lower", "upper"} {
		_ = checkCmd.MarkFlagRequired(f)
	}
}
