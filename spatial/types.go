// Copyright 2025 The TrafficMap Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// ErrInvalidPoint is returned when a textual coordinate can't be parsed.
var ErrInvalidPoint = errors.New("spatial: invalid point")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

// ParsePoint parses a "lat,lng" pair as typed on the command line.
// No range validation is done.
func ParsePoint(s string) (Point, error) {
	lat, lng, found := strings.Cut(s, ",")
	if !found {
		return Point{}, fmt.Errorf("%w: %q, expected lat,lng", ErrInvalidPoint, s)
	}

	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidPoint, lat)
	}

	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidPoint, lng)
	}

	return Point{Lat: la, Lng: ln}, nil
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Cell returns the H3 cell containing the point at the given resolution.
func (p Point) Cell(resolution int) (int64, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), resolution)
	if err != nil {
		return 0, fmt.Errorf("converting to h3 cell at res %d: %w", resolution, err)
	}

	return int64(cell), nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p Point) HaversineDistance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
