// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolOptions tunes Connect.
type PoolOptions struct {
	MaxConns       int32
	ConnectRetries uint64
	RetryBase      time.Duration
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// openFunc opens a pool. Replaced in tests.
type openFunc func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error)

// Connect opens a pgx pool for databaseURL and waits until the database
// answers a ping, retrying with exponential backoff.
func Connect(ctx context.Context, databaseURL string, opts PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	return connect(ctx, databaseURL, opts, logger, pgxpool.NewWithConfig)
}

func connect(ctx context.Context, databaseURL string, opts PoolOptions, logger *slog.Logger, open openFunc) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff(opts), func(ctx context.Context) error {
		attempt++
		p, openErr := open(ctx, cfg)
		if openErr == nil {
			openErr = ping(ctx, p)
			if openErr != nil {
				p.Close()
			}
		}
		if openErr != nil {
			logger.Warn("database not reachable", "attempt", attempt, "error", openErr)
			return retry.RetryableError(openErr)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}

func backoff(opts PoolOptions) retry.Backoff {
	base := opts.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(10*time.Second, b)
	return retry.WithMaxRetries(opts.ConnectRetries, b)
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.Ping(ctx) //nolint:wrapcheck // wrapped by caller
}
