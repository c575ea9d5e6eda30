// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"context"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"go.uber.org/zap"
)

// NoDuration is the duration reported along LevelError.
const NoDuration = -1

// Result of a route check. Err is nil on success; on failure Level is
// LevelError and DurationSec is NoDuration.
type Result struct {
	Level          Level
	DurationSec    int
	DistanceMeters int
	Err            error
}

// OK reports whether the check produced a traffic level.
func (r Result) OK() bool {
	return r.Err == nil
}

// Duration returns the travel duration, if there is one.
func (r Result) Duration() (time.Duration, bool) {
	if !r.OK() {
		return 0, false
	}

	return time.Duration(r.DurationSec) * time.Second, true
}

func failed(err error) Result {
	return Result{Level: LevelError, DurationSec: NoDuration, Err: err}
}

// Checker classifies the live traffic of routes. It keeps no state between
// calls.
type Checker struct {
	computer     RouteComputer
	connectivity Connectivity
	logger       *zap.Logger
}

// NewChecker creates a Checker. A nil connectivity skips the network probe and
// a nil logger discards logs.
func NewChecker(computer RouteComputer, connectivity Connectivity, logger *zap.Logger) *Checker {
	if connectivity == nil {
		connectivity = AlwaysConnected
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Checker{
		computer:     computer,
		connectivity: connectivity,
		logger:       logger,
	}
}

// Check asks for the current duration of req and classifies it.
func (c *Checker) Check(ctx context.Context, req RouteRequest, thresholds Thresholds) Result {
	if err := ctx.Err(); err != nil {
		return failed(transportError(err))
	}

	if !c.connectivity.Connected(ctx) {
		c.logger.Warn("no network connectivity")

		return failed(newCheckError(ErrorTypeNoConnectivity, "network is not connected", nil))
	}

	route, err := c.computer.ComputeRoute(ctx, req)
	if err != nil {
		c.logger.Warn("route check failed",
			zap.Stringer("error_type", ErrorTypeOf(err)),
			zap.Error(err),
		)

		return failed(err)
	}

	level := Classify(route.DurationSec, thresholds)

	c.logger.Debug("route checked",
		zap.Int("duration_sec", route.DurationSec),
		zap.Int("distance_meters", route.DistanceMeters),
		zap.Int("lower_sec", thresholds.LowerSec),
		zap.Int("upper_sec", thresholds.UpperSec),
		zap.Stringer("level", level),
	)

	return Result{
		Level:          level,
		DurationSec:    route.DurationSec,
		DistanceMeters: route.DistanceMeters,
	}
}

// ClassifyWithDuration checks the route and returns its level and duration in
// seconds, or LevelError and NoDuration.
func (c *Checker) ClassifyWithDuration(
	ctx context.Context,
	origin, destination spatial.Point,
	intermediates []spatial.Point,
	lowerSec, upperSec int,
) (Level, int) {
	r := c.Check(
		ctx,
		RouteRequest{Origin: origin, Destination: destination, Intermediates: intermediates},
		Thresholds{LowerSec: lowerSec, UpperSec: upperSec},
	)

	return r.Level, r.DurationSec
}

// Classify is ClassifyWithDuration without the duration.
func (c *Checker) Classify(
	ctx context.Context,
	origin, destination spatial.Point,
	intermediates []spatial.Point,
	lowerSec, upperSec int,
) Level {
	level, _ := c.ClassifyWithDuration(ctx, origin, destination, intermediates, lowerSec, upperSec)

	return level
}
