// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves the street addresses of the route table into coordinates.
package geocode

import (
	"context"
	"errors"

	"github.com/jcodagnone/trafficmap/spatial"
)

// ErrNotFound is returned when the provider has no match for an address.
var ErrNotFound = errors.New("address not found")

// Result represents a geocoding result from any provider.
type Result struct {
	Point       spatial.Point
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}
