// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"context"
	"io"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// RouteConfig is one row of the monitored route table.
type RouteConfig struct {
	Name          string          `json:"name"`
	Origin        spatial.Point   `json:"origin"`
	Destination   spatial.Point   `json:"destination"`
	Intermediates []spatial.Point `json:"intermediates,omitempty"`
	Thresholds    Thresholds      `json:"thresholds"`
}

// Request returns the routing request of the route.
func (rc RouteConfig) Request() RouteRequest {
	return RouteRequest{
		Origin:        rc.Origin,
		Destination:   rc.Destination,
		Intermediates: rc.Intermediates,
	}
}

// RouteStatus is the outcome of checking one route.
type RouteStatus struct {
	Name           string    `json:"name"`
	Level          Level     `json:"level"`
	DurationSec    int       `json:"duration_sec"`
	DistanceMeters int       `json:"distance_meters,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
	Error          string    `json:"error,omitempty"`
}

// NewRouteStatus builds the status row of a check result.
func NewRouteStatus(name string, r Result, checkedAt time.Time) RouteStatus {
	status := RouteStatus{
		Name:           name,
		Level:          r.Level,
		DurationSec:    r.DurationSec,
		DistanceMeters: r.DistanceMeters,
		CheckedAt:      checkedAt,
	}

	if r.Err != nil {
		status.Error = r.Err.Error()
	}

	return status
}

// Monitor checks a route table one route at a time.
type Monitor struct {
	checker *Checker
	logger  *zap.Logger
	now     func() time.Time

	// Progress, when set, receives a progress bar for each round.
	Progress io.Writer
}

// NewMonitor creates a Monitor.
func NewMonitor(checker *Checker, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckAll checks every route in table order, one status per route. Failed
// checks are reported in their row.
//
// The round stops early when ctx is done, returning the statuses gathered so
// far and ctx.Err(), or when the API reports an exhausted quota, returning the
// statuses up to and including that route and the quota error.
func (m *Monitor) CheckAll(ctx context.Context, routes []RouteConfig) ([]RouteStatus, error) {
	var bar *progressbar.ProgressBar
	if m.Progress != nil {
		bar = progressbar.NewOptions(len(routes),
			progressbar.OptionSetDescription("Checking routes"),
			progressbar.OptionSetWriter(m.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	statuses := make([]RouteStatus, 0, len(routes))
	failures, timeouts, rateLimited := 0, 0, 0

	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return m.abort(bar, statuses, err)
		}

		result := m.checker.Check(ctx, route.Request(), route.Thresholds)

		// a check cut by the cancellation says nothing about the route
		if err := ctx.Err(); err != nil {
			return m.abort(bar, statuses, err)
		}

		statuses = append(statuses, NewRouteStatus(route.Name, result, m.now()))

		if bar != nil {
			_ = bar.Add(1)
		}

		if result.OK() {
			continue
		}

		failures++

		switch {
		case IsQuotaExceededError(result.Err):
			m.logger.Error("quota exhausted, abandoning the round",
				zap.String("route", route.Name),
				zap.Int("pending", len(routes)-len(statuses)),
			)

			return m.abort(bar, statuses, result.Err)
		case IsRateLimitError(result.Err):
			rateLimited++
		case IsTimeoutError(result.Err):
			timeouts++
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	m.logger.Info("round finished",
		zap.Int("routes", len(routes)),
		zap.Int("failures", failures),
		zap.Int("timeouts", timeouts),
		zap.Int("rate_limited", rateLimited),
	)

	return statuses, nil
}

func (m *Monitor) abort(bar *progressbar.ProgressBar, statuses []RouteStatus, err error) ([]RouteStatus, error) {
	if bar != nil {
		_ = bar.Exit()
	}

	return statuses, err
}

// round runs CheckAll and hands its statuses to sink. A round cut by ctx is
// dropped; a round cut by the quota keeps the routes that were checked.
func (m *Monitor) round(ctx context.Context, routes []RouteConfig, sink func([]RouteStatus) error) error {
	statuses, err := m.CheckAll(ctx, routes)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		m.logger.Warn("round incomplete", zap.Int("checked", len(statuses)), zap.Error(err))
	}

	return sink(statuses)
}

// Watch runs a round right away and then every interval, handing each round to
// sink, until ctx is done or sink fails. An interval <= 0 runs a single round.
// Rounds interrupted by ctx never reach sink.
func (m *Monitor) Watch(
	ctx context.Context,
	routes []RouteConfig,
	interval time.Duration,
	sink func([]RouteStatus) error,
) error {
	if err := m.round(ctx, routes, sink); err != nil {
		return err
	}

	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.round(ctx, routes, sink); err != nil {
				return err
			}
		}
	}
}
