// Package jobs wires the asynq-backed notification delivery queue and the
// robfig/cron-driven periodic sweeps (auto-complete abandoned shifts) that
// run outside the request path.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
)

// TypeNotificationDeliver is the asynq task type for best-effort
// notification delivery: the row is already durably written by the
// caller, this task only handles any outward-facing side channel.
const TypeNotificationDeliver = "notification:deliver"

// NotificationPayload is the asynq task payload.
type NotificationPayload struct {
	Username string                  `json:"username"`
	Message  string                  `json:"message"`
	Kind     models.NotificationKind `json:"kind"`
}

// NotificationProducer enqueues delivery tasks onto the asynq/Redis queue.
type NotificationProducer struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewNotificationProducer dials the asynq client against redisAddr.
func NewNotificationProducer(redisAddr string, logger *zap.Logger) *NotificationProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProducer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), logger: logger}
}

// Enqueue schedules best-effort delivery. Failures to enqueue are logged,
// never surfaced to the caller: notification delivery must not block the
// domain operation that triggered it (spec.md's "best effort" contract).
func (p *NotificationProducer) Enqueue(ctx context.Context, payload NotificationPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal notification payload", zap.Error(err))
		return
	}
	task := asynq.NewTask(TypeNotificationDeliver, data)
	if _, err := p.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		p.logger.Warn("enqueue notification delivery", zap.Error(err), zap.String("username", payload.Username))
	}
}

// Close releases the underlying asynq client connection.
func (p *NotificationProducer) Close() error {
	return p.client.Close()
}

// NotificationDeliverer is the side-channel the consumer fans out to once
// a notification task is dequeued. Today this is a log sink; a future
// channel (email, push) slots in here without touching the queue plumbing.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, payload NotificationPayload) error
}

// LogDeliverer satisfies NotificationDeliverer by writing a structured log
// line, standing in for an outward channel this deployment does not wire.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer constructs a deliverer that only logs.
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

// Deliver logs the notification at info level.
func (d *LogDeliverer) Deliver(_ context.Context, payload NotificationPayload) error {
	d.logger.Info("notification delivered",
		zap.String("username", payload.Username),
		zap.String("kind", string(payload.Kind)))
	return nil
}

// RegisterHandlers wires the notification delivery handler into an asynq
// ServeMux, matching the mux.HandleFunc registration shape used across the
// retrieved corpus's asynq consumers.
func RegisterHandlers(mux *asynq.ServeMux, deliverer NotificationDeliverer) {
	mux.HandleFunc(TypeNotificationDeliver, func(ctx context.Context, t *asynq.Task) error {
		var payload NotificationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal notification payload: %w: %w", err, asynq.SkipRetry)
		}
		return deliverer.Deliver(ctx, payload)
	})
}

// NewServer builds the asynq worker server that drains the delivery queue.
func NewServer(redisAddr string, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Logger:      zapAsynqLogger{logger: logger},
		},
	)
}

type zapAsynqLogger struct {
	logger *zap.Logger
}

func (l zapAsynqLogger) Debug(args ...interface{}) { l.logger.Sugar().Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.logger.Sugar().Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.logger.Sugar().Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.logger.Sugar().Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.logger.Sugar().Fatal(args...) }
