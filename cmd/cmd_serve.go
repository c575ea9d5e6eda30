// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/trafficmap/server"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	apiOptions

	Listen string
	DbPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the route table and its traffic history over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveOptions.Listen
		}

		if cmd.Flags().Changed("db-path") {
			cfg.DBPath = serveOptions.DbPath
		}

		apiKey, err := resolveAPIKey(cmd.Context(), cfg, &serveOptions.apiOptions)
		if err != nil {
			return err
		}

		routes, err := routeTable(cmd.Context(), cfg, apiKey, &serveOptions.apiOptions)
		if err != nil {
			return err
		}

		checker, err := newChecker(cfg, apiKey, &serveOptions.apiOptions)
		if err != nil {
			return err
		}

		db, repo, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if !rootOptions.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		fmt.Printf("🚦 Serving %d routes on http://%s\n", len(routes), cfg.Listen)

		srv, err := server.NewServer(cfg, repo, checker, logger)
		if err != nil {
			return err
		}

		return srv.Run(cfg.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveOptions.register(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOptions.Listen,
		"listen",
		"localhost:8080",
		"Address to listen on",
	)
	serveCmd.Flags().StringVar(
		&serveOptions.DbPath,
		"db-path",
		"db",
		"Directory of the local database",
	)
}
