// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugBodyOptions struct {
	Origin      string
	Destination string
	Via         []string
}

var debugBodyCmd = &cobra.Command{
	Use:   "body",
	Short: "Prints the computeRoutes request body without sending it",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		req, err := parseRoute(debugBodyOptions.Origin, debugBodyOptions.Destination, debugBodyOptions.Via)
		if err != nil {
			return err
		}

		body, err := traffic.RequestBody(req)
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			return err
		}

		fmt.Println(out.String())

		return nil
	},
}

var debugDurationCmd = &cobra.Command{
	Use:   "duration",
	Short: "Parses Routes API durations",
	Long: `Reads one duration per line, and prints it followed by the seconds it
stands for, or the parse error.

$ echo 723s | trafficmap debug duration
723s	723
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter durations to parse, one per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()

			seconds, err := traffic.ParseDurationSeconds(line)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)
			} else {
				fmt.Printf("%s\t%d\n", line, seconds)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugBodyCmd)
	debugCmd.AddCommand(debugDurationCmd)

	debugBodyCmd.Flags().StringVar(&debugBodyOptions.Origin, "origin", "", "Origin as lat,lng")
	debugBodyCmd.Flags().StringVar(&debugBodyOptions.Destination, "destination", "", "Destination as lat,lng")
	debugBodyCmd.Flags().StringArrayVar(&debugBodyOptions.Via, "via", nil, "Intermediate waypoint as lat,lng. Repeatable")
	_ = debugBodyCmd.MarkFlagRequired("origin")
	_ = debugBodyCmd.MarkFlagRequired("destination")
}
