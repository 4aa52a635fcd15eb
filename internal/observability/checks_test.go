// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	check := RedisCheck(client)
	assert.Equal(t, "redis", check.Name)
	require.NoError(t, check.Probe(context.Background()))

	mr.Close()
	assert.Error(t, check.Probe(context.Background()))
}

func TestPingCheck(t *testing.T) {
	pingErr := errors.New("pool closed")
	check := PingCheck("postgres", pingerFunc(func(context.Context) error { return pingErr }))

	assert.Equal(t, "postgres", check.Name)
	assert.ErrorIs(t, check.Probe(context.Background()), pingErr)
}

func TestServer_ReadinessWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := NewServer("127.0.0.1:0", RedisCheck(client)).Handler()

	code, _ := get(t, handler, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, code)

	mr.Close()
	code, body := get(t, handler, "/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "redis")
}
