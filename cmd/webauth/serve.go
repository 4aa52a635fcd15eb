// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/internal/auth/postgres"
	"github.com/holomush/webauth/internal/config"
	"github.com/holomush/webauth/internal/logging"
	"github.com/holomush/webauth/internal/mail"
	"github.com/holomush/webauth/internal/observability"
	"github.com/holomush/webauth/internal/store"
	"github.com/holomush/webauth/internal/web"
)

// database is the part of *pgxpool.Pool the server uses.
type database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// ConnectDB opens the database pool.
	// Default: store.Connect
	ConnectDB func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database, error)

	// MigrateUp applies pending migrations when database.auto_migrate is set.
	// Default: store.MigrateUp
	MigrateUp func(databaseURL string, logger *slog.Logger) error

	// NewSender creates the mail transport.
	// Default: mail.NewSESSender
	NewSender func(ctx context.Context, cfg *config.Config) (mail.Sender, error)

	// NewRedis creates the redis client backing the mail queue.
	// Default: redis.ParseURL + redis.NewClient
	NewRedis func(url string) (redis.UniversalClient, error)

	// OnReady is called with the bound API and metrics addresses once both
	// servers are listening. The metrics address is empty when disabled.
	OnReady func(apiAddr, metricsAddr string)
}

func (d *ServeDeps) withDefaults() {
	if d.ConnectDB == nil {
		d.ConnectDB = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database, error) {
			return store.Connect(ctx, cfg.Database.URL, store.PoolOptions{
				MaxConns:       cfg.Database.MaxConns,
				ConnectRetries: cfg.Database.ConnectRetries,
			}, logger)
		}
	}
	if d.MigrateUp == nil {
		d.MigrateUp = store.MigrateUp
	}
	if d.NewSender == nil {
		d.NewSender = func(ctx context.Context, cfg *config.Config) (mail.Sender, error) {
			return mail.NewSESSender(ctx, mail.SESOptions{
				Region:          cfg.AWS.Region,
				AccessKeyID:     cfg.AWS.AccessKeyID,
				SecretAccessKey: cfg.AWS.SecretAccessKey,
				Endpoint:        cfg.AWS.Endpoint,
				From:            cfg.Mail.From,
			})
		}
	}
	if d.NewRedis == nil {
		d.NewRedis = func(url string) (redis.UniversalClient, error) {
			opt, err := redis.ParseURL(url)
			if err != nil {
				return nil, oops.Code("REDIS_CONFIG_INVALID").With("operation", "parse redis url").Wrap(err)
			}
			return redis.NewClient(opt), nil
		}
	}
	if d.OnReady == nil {
		d.OnReady = func(string, string) {}
	}
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the account API together with the mail worker and the
metrics/health listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, nil)
		},
	}
}

// runServe wires the service from cfg and serves until ctx is cancelled or
// a server fails.
func runServe(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.withDefaults()

	if err := cfg.ValidateServe(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "webauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
	})
	gin.SetMode(gin.ReleaseMode)

	logger.Info("starting webauth",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"mail_async", cfg.Mail.Async,
	)

	db, err := deps.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := deps.MigrateUp(cfg.Database.URL, logger); err != nil {
			return oops.With("operation", "auto migrate").Wrap(err)
		}
	}

	checks := []observability.Check{observability.PingCheck("postgres", db)}

	sender, err := deps.NewSender(ctx, cfg)
	if err != nil {
		return err
	}

	var rdb redis.UniversalClient
	if cfg.Mail.Async {
		rdb, err = deps.NewRedis(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				logger.Warn("error closing redis client", "error", closeErr)
			}
		}()
		checks = append(checks, observability.RedisCheck(rdb))
	}

	obsServer := observability.NewServer(cfg.Metrics.Addr, checks...)
	metrics := obsServer.Metrics()

	var dispatcher mail.Dispatcher = mail.Direct{Sender: sender}
	if rdb != nil {
		queue, err := mail.NewQueue(rdb, sender, mail.QueueOptions{
			MaxRetry:    cfg.Mail.MaxRetry,
			Timeout:     cfg.Mail.Timeout,
			Concurrency: cfg.Mail.Concurrency,
			Recorder:    metrics,
			Logger:      logger.With("component", "mail"),
		})
		if err != nil {
			return err
		}
		worker := mail.NewWorker(rdb, queue)
		if err := worker.Start(); err != nil {
			return err
		}
		defer worker.Shutdown()
		dispatcher = queue
	}

	notifier, err := mail.NewNotifier(dispatcher, mail.NotifierOptions{
		Product:       cfg.Mail.Product,
		TestRecipient: cfg.Mail.TestRecipient,
	})
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Token.Secret, cfg.Token.TTL, cfg.Token.Issuer)
	if err != nil {
		return err
	}
	svc, err := auth.NewService(auth.ServiceDeps{
		Users:    postgres.NewUserDirectory(db),
		Hasher:   auth.NewArgon2idHasher(),
		Tokens:   tokens,
		Notifier: notifier,
		Recorder: metrics,
		Logger:   logger.With("component", "auth"),
	})
	if err != nil {
		return err
	}

	router, err := web.NewRouter(web.Options{
		Accounts:    svc,
		Cookie:      web.CookieOptions{Secure: cfg.Cookie.Secure, Domain: cfg.Cookie.Domain},
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Observer:    metrics,
		Logger:      logger.With("component", "http"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiServer := web.NewServer(cfg.HTTP.Addr, router)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	metricsAddr := ""
	if cfg.Metrics.Addr != "" {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(logger, cfg, "api", apiServer.Stop)
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metricsAddr = obsServer.Addr()
	}

	logger.Info("webauth ready", "http_addr", apiServer.Addr(), "metrics_addr", metricsAddr)
	deps.OnReady(apiServer.Addr(), metricsAddr)

	<-ctx.Done()
	logger.Info("shutting down...")

	stopServer(logger, cfg, "api", apiServer.Stop)
	if metricsAddr != "" {
		stopServer(logger, cfg, "observability", obsServer.Stop)
	}

	logger.Info("shutdown complete")
	return nil
}

// stopServer stops a server within the configured shutdown timeout.
func stopServer(logger *slog.Logger, cfg *config.Config, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
