// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Worker runs the asynq server that drains the mail queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a Worker processing tasks with q. rdb is shared and is
// not closed by Shutdown.
func NewWorker(rdb redis.UniversalClient, q *Queue) *Worker {
	server := asynq.NewServerFromRedisClient(rdb, asynq.Config{
		Concurrency: q.opts.Concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      asynqLogger{logger: q.opts.Logger.With("component", "asynq")},
		LogLevel:    asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeSend, q)
	return &Worker{server: server, mux: mux}
}

// Start begins processing in background goroutines.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return oops.Code("MAIL_WORKER_START_FAILED").Wrap(err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// asynqLogger routes asynq's logging into slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }

func (l asynqLogger) Fatal(args ...any) {
	l.logger.Error(fmt.Sprint(args...), "fatal", true)
	os.Exit(1)
}
