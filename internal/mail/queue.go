// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/webauth/pkg/errutil"
)

// Task routing.
const (
	TaskTypeSend = "mail:send"
	QueueName    = "mail"
)

// Delivery statuses passed to DeliveryRecorder.
const (
	DeliveryQueued  = "queued"
	DeliverySent    = "sent"
	DeliveryRetry   = "retry"
	DeliveryFailed  = "failed"
	DeliveryDropped = "dropped"
)

// Queue defaults.
const (
	DefaultMaxRetry    = 5
	DefaultTaskTimeout = 30 * time.Second
	DefaultConcurrency = 2
)

// Dispatcher accepts a message for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// DeliveryRecorder counts delivery outcomes per message kind.
type DeliveryRecorder interface {
	RecordDelivery(kind, status string)
}

type nopDeliveryRecorder struct{}

func (nopDeliveryRecorder) RecordDelivery(string, string) {}

// enqueuer is the part of *asynq.Client used by Queue.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueOptions configures a Queue. Zero values select the defaults.
type QueueOptions struct {
	MaxRetry    int
	Timeout     time.Duration
	Concurrency int
	Recorder    DeliveryRecorder
	Logger      *slog.Logger
}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.MaxRetry <= 0 {
		o.MaxRetry = DefaultMaxRetry
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTaskTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Recorder == nil {
		o.Recorder = nopDeliveryRecorder{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Queue is a Dispatcher backed by an asynq queue in redis. It is also the
// asynq handler that performs the delivery, so a message is delivered at
// least once.
type Queue struct {
	client enqueuer
	sender Sender
	opts   QueueOptions
}

// NewQueue creates a Queue enqueuing into rdb and delivering through sender.
// The caller owns rdb and closes it after the queue is no longer used.
func NewQueue(rdb redis.UniversalClient, sender Sender, opts QueueOptions) (*Queue, error) {
	if rdb == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("redis client is required")
	}
	return newQueue(asynq.NewClientFromRedisClient(rdb), sender, opts)
}

func newQueue(client enqueuer, sender Sender, opts QueueOptions) (*Queue, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required")
	}
	return &Queue{client: client, sender: sender, opts: opts.withDefaults()}, nil
}

// Dispatch enqueues msg. The message ID is the task ID, so dispatching the
// same message twice queues it once.
func (q *Queue) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("MAIL_ENQUEUE_FAILED").With("message_id", msg.ID).Wrap(err)
	}

	task := asynq.NewTask(TaskTypeSend, payload)
	// Delivery must not be abandoned because the caller's request ended.
	info, err := q.client.EnqueueContext(context.WithoutCancel(ctx), task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(q.opts.MaxRetry),
		asynq.Timeout(q.opts.Timeout),
		asynq.TaskID(msg.ID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		q.opts.Logger.DebugContext(ctx, "mail already queued", "message_id", msg.ID)
		return nil
	}
	if err != nil {
		q.opts.Recorder.RecordDelivery(string(msg.Kind), DeliveryFailed)
		return oops.Code("MAIL_ENQUEUE_FAILED").
			With("message_id", msg.ID).
			With("kind", string(msg.Kind)).
			Wrap(err)
	}

	q.opts.Recorder.RecordDelivery(string(msg.Kind), DeliveryQueued)
	q.opts.Logger.DebugContext(ctx, "mail queued",
		"message_id", msg.ID, "kind", string(msg.Kind), "queue", info.Queue)
	return nil
}

// ProcessTask implements asynq.Handler. Undecodable payloads are dropped
// without retry; send failures are returned so asynq retries them.
func (q *Queue) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		q.opts.Recorder.RecordDelivery("unknown", DeliveryDropped)
		err = oops.Code("MAIL_PAYLOAD_INVALID").Wrapf(asynq.SkipRetry, "decode payload: %v", err)
		errutil.LogErrorContext(ctx, q.opts.Logger, "dropping mail task", err)
		return err
	}
	if err := msg.Validate(); err != nil {
		q.opts.Recorder.RecordDelivery(string(msg.Kind), DeliveryDropped)
		err = oops.Code("MAIL_PAYLOAD_INVALID").With("message_id", msg.ID).Wrapf(asynq.SkipRetry, "%v", err)
		errutil.LogErrorContext(ctx, q.opts.Logger, "dropping mail task", err)
		return err
	}

	if err := q.sender.Send(ctx, msg); err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		status := DeliveryRetry
		if retried >= maxRetry {
			status = DeliveryFailed
		}
		q.opts.Recorder.RecordDelivery(string(msg.Kind), status)
		errutil.LogErrorContext(ctx, q.opts.Logger, "mail delivery failed", oops.
			With("retry", retried).
			With("max_retry", maxRetry).
			Wrap(err))
		return err
	}

	q.opts.Recorder.RecordDelivery(string(msg.Kind), DeliverySent)
	q.opts.Logger.InfoContext(ctx, "mail delivered", "message_id", msg.ID, "kind", string(msg.Kind))
	return nil
}

var _ asynq.Handler = (*Queue)(nil)

// Direct is a Dispatcher that sends immediately, without a queue.
type Direct struct {
	Sender Sender
}

// Dispatch validates and sends msg.
func (d Direct) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.Sender.Send(ctx, msg)
}
