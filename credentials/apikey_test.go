// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestResolver(t *testing.T, env map[string]string, adcKey string, adcErr error) (*Resolver, *int) {
	t.Helper()

	calls := 0
	r := NewResolver(zaptest.NewLogger(t))
	r.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]

		return v, ok
	}
	r.fromADC = func(_ context.Context, _, displayName string) (string, error) {
		calls++

		assert.Equal(t, DefaultKeyDisplay, displayName)

		return adcKey, adcErr
	}

	return r, &calls
}

func TestResolveExplicit(t *testing.T) {
	r, calls := newTestResolver(t, map[string]string{EnvAPIKey: "from-env"}, "from-adc", nil)

	key, err := r.Resolve(context.Background(), "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", key)
	assert.Zero(t, *calls)
}

func TestResolveEnv(t *testing.T) {
	r, calls := newTestResolver(t, map[string]string{EnvAPIKey: "from-env"}, "from-adc", nil)

	key, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
	assert.Zero(t, *calls)
}

func TestResolveADC(t *testing.T) {
	r, calls := newTestResolver(t, map[string]string{EnvAPIKey: ""}, "from-adc", nil)

	key, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "from-adc", key)
	assert.Equal(t, 1, *calls)
}

func TestResolveNothing(t *testing.T) {
	r, _ := newTestResolver(t, nil, "", errors.New("no credentials"))

	_, err := r.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.ErrorContains(t, err, "no credentials")
}
