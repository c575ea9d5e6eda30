// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package traffic

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Connectivity reports whether the network is up.
type Connectivity interface {
	Connected(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

// Connected implements Connectivity.
func (f ConnectivityFunc) Connected(ctx context.Context) bool {
	return f(ctx)
}

// AlwaysConnected skips the probe.
var AlwaysConnected Connectivity = ConnectivityFunc(func(context.Context) bool { return true })

// DialConnectivity considers the network up when a TCP connection to Address
// can be opened.
type DialConnectivity struct {
	Address string
	Timeout time.Duration
}

// NewDialConnectivity probes the host serving endpoint.
func NewDialConnectivity(endpoint string, timeout time.Duration) (*DialConnectivity, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}

	return &DialConnectivity{
		Address: net.JoinHostPort(u.Hostname(), port),
		Timeout: timeout,
	}, nil
}

// Connected implements Connectivity.
func (d *DialConnectivity) Connected(ctx context.Context) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return false
	}

	_ = conn.Close()

	return true
}
