// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/httputils"
)

// DefaultGoogleEndpoint is the Geocoding API JSON endpoint.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	region     string
	endpoint   string
	httpClient *http.Client
}

// GoogleOptions configures NewGoogleMapsGeocoder.
type GoogleOptions struct {
	APIKey string
	// Region biases results to a ccTLD, e.g. "uy".
	Region             string
	Endpoint           string
	InsecureSkipVerify bool
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(options GoogleOptions) *GoogleMapsGeocoder {
	endpoint := options.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}

	return &GoogleMapsGeocoder{
		apiKey:   options.APIKey,
		region:   options.Region,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: httputils.NewTransport(options.InsecureSkipVerify),
		},
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

func confidence(locationType string) string {
	switch locationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		return "high"
	case "GEOMETRIC_CENTER":
		return "medium"
	default:
		return "low"
	}
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, traffic.ClassifyHTTPError(resp.StatusCode, nil)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	case "OVER_QUERY_LIMIT":
		return nil, &traffic.CheckError{Type: traffic.ErrorTypeRateLimit, Message: "geocoding: " + gmResp.ErrorMessage}
	case "REQUEST_DENIED":
		return nil, &traffic.CheckError{Type: traffic.ErrorTypeQuotaExceeded, Message: "geocoding: " + gmResp.ErrorMessage}
	default:
		return nil, fmt.Errorf("google maps status: %s %s", gmResp.Status, gmResp.ErrorMessage)
	}

	if len(gmResp.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	result := gmResp.Results[0]

	return &Result{
		Point: spatial.Point{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
		Confidence:  confidence(result.Geometry.LocationType),
		Provider:    "google_maps",
		DisplayName: result.FormattedAddress,
	}, nil
}
