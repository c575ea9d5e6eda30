// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcodagnone/trafficmap/spatial"
)

// Routes API constants.
const (
	DefaultEndpoint   = "https://routes.googleapis.com/directions/v2:computeRoutes"
	FieldMask         = "routes.duration,routes.distanceMeters"
	TravelModeDrive   = "DRIVE"
	PreferenceTraffic = "TRAFFIC_AWARE"
)

// RouteRequest is a drive from Origin to Destination through Intermediates,
// visited in order.
type RouteRequest struct {
	Origin        spatial.Point   `json:"origin"`
	Destination   spatial.Point   `json:"destination"`
	Intermediates []spatial.Point `json:"intermediates,omitempty"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type waypoint struct {
	Location location `json:"location"`
}

func newWaypoint(p spatial.Point) waypoint {
	return waypoint{Location: location{LatLng: latLng{Latitude: p.Lat, Longitude: p.Lng}}}
}

// computeRoutesRequest is the subset of the computeRoutes body we send.
type computeRoutesRequest struct {
	Origin            waypoint   `json:"origin"`
	Destination       waypoint   `json:"destination"`
	Intermediates     []waypoint `json:"intermediates"`
	TravelMode        string     `json:"travelMode"`
	RoutingPreference string     `json:"routingPreference"`
}

func newComputeRoutesRequest(req RouteRequest) computeRoutesRequest {
	body := computeRoutesRequest{
		Origin:            newWaypoint(req.Origin),
		Destination:       newWaypoint(req.Destination),
		Intermediates:     make([]waypoint, 0, len(req.Intermediates)),
		TravelMode:        TravelModeDrive,
		RoutingPreference: PreferenceTraffic,
	}

	for _, p := range req.Intermediates {
		body.Intermediates = append(body.Intermediates, newWaypoint(p))
	}

	return body
}

// computeRoutesResponse is what the field mask leaves in the answer.
type computeRoutesResponse struct {
	Routes []struct {
		Duration       string `json:"duration"`
		DistanceMeters int    `json:"distanceMeters"`
	} `json:"routes"`
}

// ParseDurationSeconds parses the protobuf JSON duration the API returns, an
// integer followed by "s" ("723s"). Fractional seconds are truncated.
func ParseDurationSeconds(s string) (int, error) {
	digits, ok := strings.CutSuffix(strings.TrimSpace(s), "s")
	if !ok {
		return 0, fmt.Errorf("duration %q: missing \"s\" suffix", s)
	}

	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" || !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("duration %q: not a number of seconds", s)
	}

	n, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}

	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
