// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jcodagnone/trafficmap/utils/htmlutils"
)

// CheckError describes why a route could not be classified.
type CheckError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

// ErrorType enumerates the failure kinds of a route check.
type ErrorType int

const (
	// ErrorTypeUnknown unknown error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNoConnectivity the device has no network.
	ErrorTypeNoConnectivity
	// ErrorTypeTransport the request could not be built or sent.
	ErrorTypeTransport
	// ErrorTypeTimeout the request deadline expired.
	ErrorTypeTimeout
	// ErrorTypeHTTPStatus the API answered with a non 200 status.
	ErrorTypeHTTPStatus
	// ErrorTypeRateLimit the API answered 429.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded the API answered 403.
	ErrorTypeQuotaExceeded
	// ErrorTypeMalformedResponse the body is not the expected JSON.
	ErrorTypeMalformedResponse
	// ErrorTypeNoRoutes the response has no routes.
	ErrorTypeNoRoutes
	// ErrorTypeMissingDuration the first route has no duration.
	ErrorTypeMissingDuration
	// ErrorTypeMalformedDuration the duration is not "<int>s".
	ErrorTypeMalformedDuration
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:           "unknown",
	ErrorTypeNoConnectivity:    "no_connectivity",
	ErrorTypeTransport:         "transport",
	ErrorTypeTimeout:           "timeout",
	ErrorTypeHTTPStatus:        "http_status",
	ErrorTypeRateLimit:         "rate_limit",
	ErrorTypeQuotaExceeded:     "quota_exceeded",
	ErrorTypeMalformedResponse: "malformed_response",
	ErrorTypeNoRoutes:          "no_routes",
	ErrorTypeMissingDuration:   "missing_duration",
	ErrorTypeMalformedDuration: "malformed_duration",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func newCheckError(t ErrorType, msg string, err error) *CheckError {
	return &CheckError{Type: t, Message: msg, Err: err}
}

// ErrorTypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		return checkErr.Type
	}

	return ErrorTypeUnknown
}

// IsRateLimitError reports whether err is caused by the API rate limit.
func IsRateLimitError(err error) bool {
	return ErrorTypeOf(err) == ErrorTypeRateLimit
}

// IsQuotaExceededError reports whether err is caused by an exhausted or denied quota.
func IsQuotaExceededError(err error) bool {
	return ErrorTypeOf(err) == ErrorTypeQuotaExceeded
}

// IsTimeoutError reports whether err is caused by an expired deadline.
func IsTimeoutError(err error) bool {
	if ErrorTypeOf(err) == ErrorTypeTimeout {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// transportError classifies an error returned by http.Client.Do.
func transportError(err error) *CheckError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newCheckError(ErrorTypeTimeout, "routes request timed out", err)
	}

	return newCheckError(ErrorTypeTransport, "routes request failed", err)
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifyHTTPError turns a non 200 answer into a CheckError. The body, when it is
// a Google API error document, contributes its message.
func ClassifyHTTPError(statusCode int, body []byte) *CheckError {
	e := &CheckError{
		Type:       ErrorTypeHTTPStatus,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("routes api returned status %d", statusCode),
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
	case http.StatusForbidden:
		e.Type = ErrorTypeQuotaExceeded
	}

	var apiErr googleAPIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		e.Message += ": " + apiErr.Error.Message
	} else if media := http.DetectContentType(body); len(body) > 0 && htmlutils.IsHTML(media) {
		// error pages of the frontends in front of the API
		if summary, err := htmlutils.Summary(body, media); err == nil && summary != "" {
			e.Message += ": " + summary
		}
	}

	return e
}
