// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jcodagnone/trafficmap/utils/httputils"
)

// ErrMissingAPIKey is returned when a RoutesClient is built without credentials.
var ErrMissingAPIKey = errors.New("routes api key is not set")

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 64 << 10
)

// ClientOptions configuration for RoutesClient.
type ClientOptions struct {
	// APIKey is sent in the X-Goog-Api-Key header
	APIKey string

	// Endpoint overrides DefaultEndpoint
	Endpoint string

	// Skips TLS certificate verification. Off unless explicitly requested.
	InsecureSkipVerify bool

	// Timeout for the whole request, defaults to 30s
	Timeout time.Duration

	// Bounds the response body read into memory, defaults to 64 KiB
	MaxResponseBytes int64

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// TraceWriter receives the traces, defaults to stderr
	TraceWriter io.Writer
}

// ComputedRoute is the part of a computeRoutes answer we use.
type ComputedRoute struct {
	DurationSec    int
	DistanceMeters int
}

// RouteComputer computes the live drive duration of a route.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, req RouteRequest) (*ComputedRoute, error)
}

// RoutesClient talks to the Google Routes API.
type RoutesClient struct {
	endpoint         string
	maxResponseBytes int64
	client           *http.Client
}

// NewRoutesClient creates a new client with the provided options.
func NewRoutesClient(options ClientOptions) (*RoutesClient, error) {
	if options.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if options.Endpoint == "" {
		options.Endpoint = DefaultEndpoint
	}

	if options.Timeout <= 0 {
		options.Timeout = defaultTimeout
	}

	if options.MaxResponseBytes <= 0 {
		options.MaxResponseBytes = defaultMaxResponseBytes
	}

	var traceWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		traceWriter = options.TraceWriter
		if traceWriter == nil {
			traceWriter = os.Stderr
		}
	}

	userAgent := "trafficmap/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent":       userAgent,
			"Content-Type":     "application/json",
			"X-Goog-Api-Key":   options.APIKey,
			"X-Goog-FieldMask": FieldMask,
		},
		Transport: &httputils.LoggingRoundTripper{
			Writer:    traceWriter,
			DumpBody:  options.EnableHTTPBodyTrace,
			Transport: httputils.NewTransport(options.InsecureSkipVerify),
		},
	}

	return &RoutesClient{
		endpoint:         options.Endpoint,
		maxResponseBytes: options.MaxResponseBytes,
		client: &http.Client{
			Timeout:   options.Timeout,
			Transport: headerTransport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Endpoint returns the URL requests are posted to.
func (c *RoutesClient) Endpoint() string {
	return c.endpoint
}

// RequestBody returns the JSON document ComputeRoute would post for req.
func RequestBody(req RouteRequest) ([]byte, error) {
	body, err := json.Marshal(newComputeRoutesRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding routes request: %w", err)
	}

	return body, nil
}

// ComputeRoute issues a single computeRoutes call. Errors are *CheckError.
func (c *RoutesClient) ComputeRoute(ctx context.Context, req RouteRequest) (*ComputedRoute, error) {
	body, err := RequestBody(req)
	if err != nil {
		return nil, newCheckError(ErrorTypeTransport, "building request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newCheckError(ErrorTypeTransport, "building request", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, payload)
	}

	return parseComputeRoutesResponse(payload)
}

func parseComputeRoutesResponse(payload []byte) (*ComputedRoute, error) {
	var parsed computeRoutesResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, newCheckError(ErrorTypeMalformedResponse, "decoding routes response", err)
	}

	if len(parsed.Routes) == 0 {
		return nil, newCheckError(ErrorTypeNoRoutes, "routes response has no routes", nil)
	}

	route := parsed.Routes[0]
	if route.Duration == "" {
		return nil, newCheckError(ErrorTypeMissingDuration, "first route has no duration", nil)
	}

	seconds, err := ParseDurationSeconds(route.Duration)
	if err != nil {
		return nil, newCheckError(ErrorTypeMalformedDuration, "parsing route duration", err)
	}

	return &ComputedRoute{
		DurationSec:    seconds,
		DistanceMeters: route.DistanceMeters,
	}, nil
}
