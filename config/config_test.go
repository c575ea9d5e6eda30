// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/trafficmap/geocode"
	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
region: uy
interval: 2m
routes:
  - name: Centro → Carrasco
    origin: {lat: -34.9059, lng: -56.1913}
    destination: {lat: -34.8870, lng: -56.0560}
    intermediates:
      - {lat: -34.8950, lng: -56.1500}
      - {lat: -34.8900, lng: -56.1000}
    lower_sec: 900
    upper_sec: 1500
  - name: Aeropuerto
    origin: {address: "Tres Cruces, Montevideo"}
    destination: {address: "Aeropuerto de Carrasco"}
    lower_sec: 1200
    upper_sec: 1800
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "routes.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "uy", cfg.Region)
	assert.Equal(t, 2*time.Minute, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, traffic.DefaultEndpoint, cfg.Endpoint)
	assert.False(t, cfg.InsecureSkipVerify)
	require.Len(t, cfg.Routes, 2)

	r := cfg.Routes[0]
	assert.Equal(t, "Centro → Carrasco", r.Name)
	assert.Equal(t, "centro-carrasco", r.Slug())
	assert.Equal(t, 900, r.LowerSec)
	assert.Equal(t, 1500, r.UpperSec)
	require.Len(t, r.Intermediates, 2)
	assert.True(t, r.Origin.Resolved())

	assert.False(t, cfg.Routes[1].Origin.Resolved())
	assert.Equal(t, "Aeropuerto de Carrasco", cfg.Routes[1].Destination.Address)
	assert.True(t, cfg.NeedsGeocoding())

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, "routes.json", `{
		"insecure_skip_verify": true,
		"routes": [{"name": "a", "origin": {"lat": 1, "lng": 2}, "destination": {"lat": 3, "lng": 4}, "lower_sec": 1, "upper_sec": 2}]
	}`))
	require.NoError(t, err)

	assert.True(t, cfg.InsecureSkipVerify)

	routes, err := cfg.RouteConfigs()
	require.NoError(t, err)

	want := []traffic.RouteConfig{{
		Name:        "a",
		Origin:      spatial.Point{Lat: 1, Lng: 2},
		Destination: spatial.Point{Lat: 3, Lng: 4},
		Thresholds:  traffic.Thresholds{LowerSec: 1, UpperSec: 2},
	}}
	if diff := cmp.Diff(want, routes); diff != "" {
		t.Errorf("RouteConfigs() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRAFFICMAP_API_KEY", "env-key")
	t.Setenv("TRAFFICMAP_DB_PATH", "/var/lib/trafficmap")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "/var/lib/trafficmap", cfg.DBPath)
	assert.Empty(t, cfg.Routes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func ptr(f float64) *float64 { return &f }

func point(lat, lng float64) Waypoint {
	return Waypoint{Lat: ptr(lat), Lng: ptr(lng)}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		routes       []Route
		wantErr      bool
		wantWarnings int
	}{
		{
			name:   "ok",
			routes: []Route{{Name: "a", Origin: point(1, 1), Destination: point(2, 2), LowerSec: 1, UpperSec: 2}},
		},
		{
			name:    "missing name",
			routes:  []Route{{Origin: point(1, 1), Destination: point(2, 2)}},
			wantErr: true,
		},
		{
			name: "duplicate slug",
			routes: []Route{
				{Name: "Home", Origin: point(1, 1), Destination: point(2, 2)},
				{Name: "home!", Origin: point(1, 1), Destination: point(2, 2)},
			},
			wantErr: true,
		},
		{
			name:    "negative threshold",
			routes:  []Route{{Name: "a", Origin: point(1, 1), Destination: point(2, 2), LowerSec: -1, UpperSec: 2}},
			wantErr: true,
		},
		{
			name:    "empty waypoint",
			routes:  []Route{{Name: "a", Origin: point(1, 1), Destination: Waypoint{}}},
			wantErr: true,
		},
		{
			name:         "inverted thresholds",
			routes:       []Route{{Name: "a", Origin: point(1, 1), Destination: point(2, 2), LowerSec: 900, UpperSec: 600}},
			wantWarnings: 1,
		},
		{
			name:         "origin is destination",
			routes:       []Route{{Name: "a", Origin: point(-34.9011, -56.1645), Destination: point(-34.90111, -56.16451), LowerSec: 1, UpperSec: 2}},
			wantWarnings: 1,
		},
		{
			name:   "address waypoints are not measured",
			routes: []Route{{Name: "a", Origin: Waypoint{Address: "Tres Cruces"}, Destination: Waypoint{Address: "Tres Cruces"}, LowerSec: 1, UpperSec: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Routes: tt.routes}

			warnings, err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}

			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

type fakeGeocoder struct {
	points map[string]spatial.Point
	calls  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	f.calls = append(f.calls, address)

	p, ok := f.points[address]
	if !ok {
		return nil, geocode.ErrNotFound
	}

	return &geocode.Result{Point: p, Provider: "fake"}, nil
}

func TestResolveAddresses(t *testing.T) {
	cfg := &Config{Routes: []Route{
		{
			Name:        "a",
			Origin:      Waypoint{Address: "Tres Cruces"},
			Destination: point(2, 2),
		},
		{
			Name:          "b",
			Origin:        Waypoint{Address: "TRES CRUCES "},
			Destination:   Waypoint{Address: "Aeropuerto"},
			Intermediates: []Waypoint{point(5, 5)},
		},
	}}

	g := &fakeGeocoder{points: map[string]spatial.Point{
		"Tres Cruces": {Lat: -34.89, Lng: -56.16},
		"Aeropuerto":  {Lat: -34.83, Lng: -56.02},
	}}

	_, err := cfg.RouteConfigs()
	require.ErrorIs(t, err, ErrUnresolved)

	require.NoError(t, cfg.ResolveAddresses(context.Background(), g))
	assert.Equal(t, []string{"Tres Cruces", "Aeropuerto"}, g.calls)
	assert.False(t, cfg.NeedsGeocoding())

	routes, err := cfg.RouteConfigs()
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, spatial.Point{Lat: -34.89, Lng: -56.16}, routes[1].Origin)
	assert.Equal(t, []spatial.Point{{Lat: 5, Lng: 5}}, routes[1].Intermediates)
}

func TestResolveAddressesFailure(t *testing.T) {
	cfg := &Config{Routes: []Route{{Name: "a", Origin: Waypoint{Address: "Atlantis"}, Destination: point(1, 1)}}}

	err := cfg.ResolveAddresses(context.Background(), &fakeGeocoder{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, geocode.ErrNotFound))
}

func TestFind(t *testing.T) {
	cfg := &Config{Routes: []Route{{Name: "Centro → Carrasco"}, {Name: "Aeropuerto"}}}

	r, err := cfg.Find("centro-carrasco")
	require.NoError(t, err)
	assert.Equal(t, "Centro → Carrasco", r.Name)

	r, err = cfg.Find("AEROPUERTO")
	require.NoError(t, err)
	assert.Equal(t, "Aeropuerto", r.Name)

	_, err = cfg.Find("Punta")
	assert.ErrorIs(t, err, ErrUnknownRoute)
}
