// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the route table and client settings.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jcodagnone/trafficmap/geocode"
	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/textutils"
	"github.com/spf13/viper"
)

// Origins and destinations closer than this are reported as the same spot.
const minRouteMeters = 10

// EnvPrefix prefixes the environment overrides, e.g. TRAFFICMAP_API_KEY.
const EnvPrefix = "TRAFFICMAP"

// Common errors returned by the package.
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnresolved      = errors.New("waypoint has no coordinates")
	ErrUnknownRoute    = errors.New("unknown route")
	ErrMissingWaypoint = errors.New("waypoint needs lat/lng or an address")
)

// Waypoint is a point of a route, given as coordinates or as an address to be
// geocoded.
type Waypoint struct {
	Lat     *float64 `mapstructure:"lat"`
	Lng     *float64 `mapstructure:"lng"`
	Address string   `mapstructure:"address"`
}

// Resolved reports whether the waypoint has coordinates.
func (w Waypoint) Resolved() bool {
	return w.Lat != nil && w.Lng != nil
}

// Point returns the coordinates of the waypoint.
func (w Waypoint) Point() (spatial.Point, error) {
	if !w.Resolved() {
		return spatial.Point{}, fmt.Errorf("%w: %q", ErrUnresolved, w.Address)
	}

	return spatial.Point{Lat: *w.Lat, Lng: *w.Lng}, nil
}

func (w *Waypoint) set(p spatial.Point) {
	lat, lng := p.Lat, p.Lng
	w.Lat, w.Lng = &lat, &lng
}

// Route is one entry of the monitored route table.
type Route struct {
	Name          string     `mapstructure:"name"`
	Origin        Waypoint   `mapstructure:"origin"`
	Destination   Waypoint   `mapstructure:"destination"`
	Intermediates []Waypoint `mapstructure:"intermediates"`
	LowerSec      int        `mapstructure:"lower_sec"`
	UpperSec      int        `mapstructure:"upper_sec"`
}

// Slug is the key of the route in URLs and lookups.
func (r *Route) Slug() string {
	return textutils.Slug(r.Name)
}

func (r *Route) waypoints() []*Waypoint {
	wps := []*Waypoint{&r.Origin, &r.Destination}
	for i := range r.Intermediates {
		wps = append(wps, &r.Intermediates[i])
	}

	return wps
}

// RouteConfig converts the entry, which must be resolved.
func (r *Route) RouteConfig() (traffic.RouteConfig, error) {
	origin, err := r.Origin.Point()
	if err != nil {
		return traffic.RouteConfig{}, fmt.Errorf("route %q origin: %w", r.Name, err)
	}

	destination, err := r.Destination.Point()
	if err != nil {
		return traffic.RouteConfig{}, fmt.Errorf("route %q destination: %w", r.Name, err)
	}

	rc := traffic.RouteConfig{
		Name:        r.Name,
		Origin:      origin,
		Destination: destination,
		Thresholds:  traffic.Thresholds{LowerSec: r.LowerSec, UpperSec: r.UpperSec},
	}

	for i, w := range r.Intermediates {
		p, err := w.Point()
		if err != nil {
			return traffic.RouteConfig{}, fmt.Errorf("route %q via %d: %w", r.Name, i+1, err)
		}

		rc.Intermediates = append(rc.Intermediates, p)
	}

	return rc, nil
}

// Config is the content of the configuration file.
type Config struct {
	APIKey             string        `mapstructure:"api_key"`
	Endpoint           string        `mapstructure:"endpoint"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Region             string        `mapstructure:"region"`
	DBPath             string        `mapstructure:"db_path"`
	Listen             string        `mapstructure:"listen"`
	Interval           time.Duration `mapstructure:"interval"`
	Routes             []Route       `mapstructure:"routes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("endpoint", traffic.DefaultEndpoint)
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("region", "")
	v.SetDefault("db_path", "db")
	v.SetDefault("listen", "localhost:8080")
	v.SetDefault("interval", 5*time.Minute)
}

// Load reads the configuration file at path, YAML or JSON by extension, with
// TRAFFICMAP_* environment overrides. An empty path only applies defaults and
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the route table. Inverted thresholds are allowed, they are
// returned as warnings.
func (c *Config) Validate() ([]string, error) {
	var (
		warnings []string
		errs     []error
	)

	seen := make(map[string]string)

	for i := range c.Routes {
		r := &c.Routes[i]

		slug := r.Slug()
		if slug == "" {
			errs = append(errs, fmt.Errorf("route #%d: missing name", i+1))

			continue
		}

		if other, ok := seen[slug]; ok {
			errs = append(errs, fmt.Errorf("route %q: same key as %q", r.Name, other))
		}

		seen[slug] = r.Name

		if r.LowerSec < 0 || r.UpperSec < 0 {
			errs = append(errs, fmt.Errorf("route %q: thresholds must not be negative", r.Name))
		}

		if r.LowerSec > r.UpperSec {
			warnings = append(warnings, fmt.Sprintf(
				"route %q: lower_sec %d > upper_sec %d, MODERATE is unreachable",
				r.Name, r.LowerSec, r.UpperSec,
			))
		}

		if r.Origin.Resolved() && r.Destination.Resolved() {
			origin, _ := r.Origin.Point()
			destination, _ := r.Destination.Point()

			if origin.HaversineDistance(destination) < minRouteMeters {
				warnings = append(warnings, fmt.Sprintf(
					"route %q: origin and destination are both at %s", r.Name, origin,
				))
			}
		}

		for _, w := range r.waypoints() {
			if !w.Resolved() && strings.TrimSpace(w.Address) == "" {
				errs = append(errs, fmt.Errorf("route %q: %w", r.Name, ErrMissingWaypoint))

				break
			}
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return warnings, nil
}

// NeedsGeocoding reports whether any waypoint is only an address.
func (c *Config) NeedsGeocoding() bool {
	for i := range c.Routes {
		for _, w := range c.Routes[i].waypoints() {
			if !w.Resolved() {
				return true
			}
		}
	}

	return false
}

// ResolveAddresses geocodes the waypoints that only have an address. Each
// distinct address is looked up once.
func (c *Config) ResolveAddresses(ctx context.Context, geocoder geocode.Geocoder) error {
	cache := make(map[string]spatial.Point)

	for i := range c.Routes {
		for _, w := range c.Routes[i].waypoints() {
			if w.Resolved() {
				continue
			}

			key := textutils.LowerASCIIFolding(w.Address)
			if p, ok := cache[key]; ok {
				w.set(p)

				continue
			}

			res, err := geocoder.Geocode(ctx, w.Address)
			if err != nil {
				return fmt.Errorf("route %q: geocoding %q: %w", c.Routes[i].Name, w.Address, err)
			}

			cache[key] = res.Point
			w.set(res.Point)
		}
	}

	return nil
}

// RouteConfigs returns the route table in file order.
func (c *Config) RouteConfigs() ([]traffic.RouteConfig, error) {
	routes := make([]traffic.RouteConfig, 0, len(c.Routes))

	for i := range c.Routes {
		rc, err := c.Routes[i].RouteConfig()
		if err != nil {
			return nil, err
		}

		routes = append(routes, rc)
	}

	return routes, nil
}

// Find returns the route whose name has the same slug as name.
func (c *Config) Find(name string) (*Route, error) {
	slug := textutils.Slug(name)
	for i := range c.Routes {
		if c.Routes[i].Slug() == slug {
			return &c.Routes[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, name)
}
