// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoute = RouteRequest{
	Origin:      spatial.Point{Lat: -34.9011, Lng: -56.1645},
	Destination: spatial.Point{Lat: -34.8580, Lng: -56.0560},
}

// requestLog keeps the requests a test server received.
type requestLog struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, r)
}

func (l *requestLog) all() []*http.Request {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.requests)
}

// newRoutesServer answers every computeRoutes call with status and body.
func newRoutesServer(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()

	requests := &requestLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(payload))
		requests.add(r)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, requests
}

func newTestClient(t *testing.T, endpoint string) *RoutesClient {
	t.Helper()

	c, err := NewRoutesClient(ClientOptions{APIKey: "test-key", Endpoint: endpoint})
	require.NoError(t, err)

	return c
}

func TestNewRoutesClientRequiresKey(t *testing.T) {
	_, err := NewRoutesClient(ClientOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := NewRoutesClient(ClientOptions{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.Endpoint())
}

func TestComputeRouteRequest(t *testing.T) {
	srv, requests := newRoutesServer(t, http.StatusOK, `{"routes":[{"duration":"723s","distanceMeters":10412}]}`)
	c := newTestClient(t, srv.URL+"/directions/v2:computeRoutes")

	req := testRoute
	req.Intermediates = []spatial.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}

	route, err := c.ComputeRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &ComputedRoute{DurationSec: 723, DistanceMeters: 10412}, route)

	require.Len(t, requests.all(), 1)
	got := requests.all()[0]

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/directions/v2:computeRoutes", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "test-key", got.Header.Get("X-Goog-Api-Key"))
	assert.Equal(t, "routes.duration,routes.distanceMeters", got.Header.Get("X-Goog-FieldMask"))

	var body computeRoutesRequest
	require.NoError(t, json.NewDecoder(got.Body).Decode(&body))
	assert.Equal(t, "DRIVE", body.TravelMode)
	assert.Equal(t, "TRAFFIC_AWARE", body.RoutingPreference)
	require.Len(t, body.Intermediates, 2)
	assert.Equal(t, 1.0, body.Intermediates[0].Location.LatLng.Latitude)
	assert.Equal(t, 3.0, body.Intermediates[1].Location.LatLng.Latitude)
}

func TestComputeRouteFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantType: ErrorTypeHTTPStatus},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"Invalid JSON payload"}}`, wantType: ErrorTypeHTTPStatus},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, wantType: ErrorTypeRateLimit},
		{name: "forbidden", status: http.StatusForbidden, body: ``, wantType: ErrorTypeQuotaExceeded},
		{name: "malformed json", status: http.StatusOK, body: `{"routes":[`, wantType: ErrorTypeMalformedResponse},
		{name: "wrong shape", status: http.StatusOK, body: `{"routes":{"duration":"1s"}}`, wantType: ErrorTypeMalformedResponse},
		{name: "no routes key", status: http.StatusOK, body: `{}`, wantType: ErrorTypeNoRoutes},
		{name: "empty routes", status: http.StatusOK, body: `{"routes":[]}`, wantType: ErrorTypeNoRoutes},
		{name: "missing duration", status: http.StatusOK, body: `{"routes":[{"distanceMeters":10}]}`, wantType: ErrorTypeMissingDuration},
		{name: "malformed duration", status: http.StatusOK, body: `{"routes":[{"duration":"soon"}]}`, wantType: ErrorTypeMalformedDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newRoutesServer(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL)

			route, err := c.ComputeRoute(context.Background(), testRoute)
			require.Error(t, err)
			assert.Nil(t, route)
			assert.Equal(t, tt.wantType, ErrorTypeOf(err), "error: %v", err)
		})
	}
}

func TestComputeRouteErrorMessage(t *testing.T) {
	srv, _ := newRoutesServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"Invalid JSON payload"}}`)
	c := newTestClient(t, srv.URL)

	_, err := c.ComputeRoute(context.Background(), testRoute)

	var checkErr *CheckError
	require.True(t, errors.As(err, &checkErr))
	assert.Equal(t, http.StatusBadRequest, checkErr.StatusCode)
	assert.Contains(t, checkErr.Error(), "Invalid JSON payload")
}

func TestComputeRouteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewRoutesClient(ClientOptions{APIKey: "k", Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ComputeRoute(context.Background(), testRoute)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), "error: %v", err)
}

func TestComputeRouteTransportError(t *testing.T) {
	srv, _ := newRoutesServer(t, http.StatusOK, `{}`)
	endpoint := srv.URL
	srv.Close()

	c := newTestClient(t, endpoint)

	_, err := c.ComputeRoute(context.Background(), testRoute)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTransport, ErrorTypeOf(err))
}

func TestComputeRouteBoundedResponse(t *testing.T) {
	huge := `{"routes":[{"duration":"723s","padding":"` + strings.Repeat("x", 1024) + `"}]}`
	srv, _ := newRoutesServer(t, http.StatusOK, huge)

	c, err := NewRoutesClient(ClientOptions{APIKey: "k", Endpoint: srv.URL, MaxResponseBytes: 128})
	require.NoError(t, err)

	_, err = c.ComputeRoute(context.Background(), testRoute)
	assert.Equal(t, ErrorTypeMalformedResponse, ErrorTypeOf(err))
}

func TestComputeRouteTraceHidesKey(t *testing.T) {
	srv, _ := newRoutesServer(t, http.StatusOK, `{"routes":[{"duration":"50s"}]}`)

	var trace bytes.Buffer

	c, err := NewRoutesClient(ClientOptions{
		APIKey:              "very-secret-key",
		Endpoint:            srv.URL,
		EnableHTTPTrace:     true,
		EnableHTTPBodyTrace: true,
		TraceWriter:         &trace,
	})
	require.NoError(t, err)

	_, err = c.ComputeRoute(context.Background(), testRoute)
	require.NoError(t, err)

	assert.Contains(t, trace.String(), "TRAFFIC_AWARE")
	assert.Contains(t, trace.String(), `"duration":"50s"`)
	assert.NotContains(t, trace.String(), "very-secret-key")
}
