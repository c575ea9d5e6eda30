// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package credentials finds the Google Maps Platform key used by the routes client.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Well known names.
const (
	EnvAPIKey         = "GOOGLE_MAPS_API_KEY"
	DefaultKeyDisplay = "TrafficMap Routes Key"
	cloudPlatform     = "https://www.googleapis.com/auth/cloud-platform"
)

// ErrNoAPIKey is returned when no source yields a key.
var ErrNoAPIKey = errors.New("no google maps api key found")

// Resolver looks for an API key in an explicit value, the environment and
// finally in the project of the Application Default Credentials.
type Resolver struct {
	// DisplayName of the key to fetch through ADC
	DisplayName string
	// ProjectID overrides the project found in the credentials
	ProjectID string

	Logger *zap.Logger

	lookupEnv func(string) (string, bool)
	fromADC   func(ctx context.Context, projectID, displayName string) (string, error)
}

// NewResolver creates a Resolver with the default sources.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		DisplayName: DefaultKeyDisplay,
		Logger:      logger,
		lookupEnv:   os.LookupEnv,
		fromADC:     keyFromADC,
	}
}

// Resolve returns explicit when set, otherwise tries the other sources in order.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if key, ok := r.lookupEnv(EnvAPIKey); ok && key != "" {
		return key, nil
	}

	r.Logger.Info(EnvAPIKey+" is not set, attempting to retrieve it via ADC",
		zap.String("display_name", r.DisplayName),
	)

	key, err := r.fromADC(ctx, r.ProjectID, r.DisplayName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoAPIKey, err)
	}

	r.Logger.Info("retrieved api key via ADC")

	return key, nil
}

func keyFromADC(ctx context.Context, projectID, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatform)
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	if projectID == "" {
		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project id in the default credentials")
	}

	client, err := apikeys.NewClient(ctx, option.WithCredentials(creds))
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the secret, it has to be fetched on its own.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' has an empty key string", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
