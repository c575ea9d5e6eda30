// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/trafficmap/config"
	"github.com/jcodagnone/trafficmap/credentials"
	"github.com/jcodagnone/trafficmap/geocode"
	"github.com/jcodagnone/trafficmap/store"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dbFile = "trafficmap.duckdb"

// apiOptions are the flags of every command that talks to Google.
type apiOptions struct {
	APIKey              string
	Insecure            bool
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

func (o *apiOptions) register(c *cobra.Command) {
	c.Flags().StringVar(
		&o.APIKey,
		"api-key",
		"",
		"Google Maps API key. Defaults to "+credentials.EnvAPIKey+" or the ADC project key",
	)
	c.Flags().BoolVar(
		&o.Insecure,
		"insecure",
		false,
		"Skip TLS certificate verification",
	)
	c.Flags().BoolVar(
		&o.EnableHTTPTrace,
		"trace-http",
		false,
		"Trace HTTP requests and responses",
	)
	c.Flags().BoolVar(
		&o.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Include bodies in the HTTP traces",
	)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootOptions.ConfigPath)
	if err != nil {
		return nil, err
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn(w)
	}

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveAPIKey(ctx context.Context, cfg *config.Config, opts *apiOptions) (string, error) {
	explicit := opts.APIKey
	if explicit == "" {
		explicit = cfg.APIKey
	}

	return credentials.NewResolver(logger).Resolve(ctx, explicit)
}

func newChecker(cfg *config.Config, apiKey string, opts *apiOptions) (*traffic.Checker, error) {
	client, err := traffic.NewRoutesClient(traffic.ClientOptions{
		APIKey:              apiKey,
		Endpoint:            cfg.Endpoint,
		InsecureSkipVerify:  cfg.InsecureSkipVerify || opts.Insecure,
		Timeout:             cfg.Timeout,
		UserAgent:           userAgent(),
		EnableHTTPTrace:     opts.EnableHTTPTrace,
		EnableHTTPBodyTrace: opts.EnableHTTPBodyTrace,
		TraceWriter:         os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("creating routes client: %w", err)
	}

	connectivity, err := traffic.NewDialConnectivity(client.Endpoint(), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}

	return traffic.NewChecker(client, connectivity, logger), nil
}

// routeTable geocodes the address-only waypoints and returns the routes to check.
func routeTable(ctx context.Context, cfg *config.Config, apiKey string, opts *apiOptions) ([]traffic.RouteConfig, error) {
	if len(cfg.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes, use --config", config.ErrInvalidConfig)
	}

	if cfg.NeedsGeocoding() {
		geocoder := geocode.NewGoogleMapsGeocoder(geocode.GoogleOptions{
			APIKey:             apiKey,
			Region:             cfg.Region,
			InsecureSkipVerify: cfg.InsecureSkipVerify || opts.Insecure,
		})

		if err := cfg.ResolveAddresses(ctx, geocoder); err != nil {
			return nil, err
		}
	}

	return cfg.RouteConfigs()
}

func openStore(dbPath string) (*sql.DB, store.StatusRepository, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	dbpath := filepath.Join(dbPath, dbFile)

	db, err := sql.Open("duckdb", dbpath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := store.NewStatusRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("database ready", zap.String("path", dbpath))

	return db, repo, nil
}
