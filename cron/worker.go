// Package cron runs the background worker that delivers booking pushes and reminders.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlink/models"
	"marketlink/services/booking"
	"marketlink/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BookingReader is the read side of the booking service the reminder handler needs.
type BookingReader interface {
	Get(ctx context.Context, bookingID string) (models.Booking, error)
}

// Deliverer pushes one event to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, event models.BookingEvent) error
}

// Worker owns the asynq server.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	redis  asynq.RedisClientOpt
	logger *zap.Logger
}

// NewWorker registers the task handlers. Reminders fan out through queue as one
// push task per recipient.
func NewWorker(redisOpts asynq.RedisClientOpt, bookings BookingReader, push Deliverer, queue tasks.Enqueuer, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingPush, handleBookingPush(push, logger))
	mux.HandleFunc(tasks.TypeBookingReminder, handleReminder(bookings, queue, logger))

	return &Worker{srv: srv, mux: mux, redis: redisOpts, logger: logger}
}

// Start runs the worker in the background, retrying startup with a growing delay.
func (w *Worker) Start(ctx context.Context) {
	go w.monitorRedisConnection(ctx)

	go func() {
		w.logger.Info("[Worker] starting async worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("[Worker] failed to start worker",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("[Worker] max retry attempts reached; background delivery disabled")
				return
			}
			select {
			case <-time.After(time.Duration(attempts*2) * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown waits for in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func handleBookingPush(push Deliverer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		event, err := tasks.ParseBookingEvent(task)
		if err != nil {
			logger.Error("[PushHandler] invalid payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := push.Deliver(ctx, event); err != nil {
			logger.Warn("[PushHandler] delivery failed",
				zap.String("bookingId", event.BookingID), zap.Error(err))
			return err
		}
		return nil
	}
}

// handleReminder re-reads the booking and, only if it is still upcoming, enqueues
// one push per party. Each push has its own task id, so a retry after a partial
// failure enqueues only the recipients that are missing. Reminders never change a
// booking.
func handleReminder(bookings BookingReader, queue tasks.Enqueuer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReminder(task)
		if err != nil {
			logger.Error("[ReminderHandler] invalid payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		b, err := bookings.Get(ctx, p.BookingID)
		if errors.Is(err, booking.ErrBookingNotFound) {
			logger.Info("[ReminderHandler] booking gone", zap.String("bookingId", p.BookingID))
			return nil
		}
		if err != nil {
			return err
		}
		if b.Status != models.StatusUpcoming {
			logger.Debug("[ReminderHandler] booking no longer upcoming",
				zap.String("bookingId", b.ID), zap.String("status", string(b.Status)))
			return nil
		}

		var errs []error
		for _, role := range []models.Role{models.RoleSeeker, models.RoleProvider} {
			push, err := tasks.NewBookingPushTask(models.BookingEvent{
				Type:             models.EventReminder,
				BookingID:        b.ID,
				NewStatus:        b.Status,
				RecipientPartyID: b.PartyFor(role),
				RecipientRole:    role,
				ServiceName:      b.ServiceName,
				ScheduledAt:      b.ScheduledAt,
				OccurredAt:       time.Now().UTC(),
			})
			if err != nil {
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			_, err = queue.EnqueueContext(ctx, push, tasks.ReminderPushOptions(b.ID, role)...)
			if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
				logger.Warn("[ReminderHandler] enqueue push failed",
					zap.String("bookingId", b.ID), zap.String("role", string(role)), zap.Error(err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// monitorRedisConnection pings the queue's Redis periodically to surface outages.
func (w *Worker) monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     w.redis.Addr,
		Password: w.redis.Password,
		DB:       w.redis.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				w.logger.Warn("[Worker] Redis connection lost", zap.Error(err))
			}
		}
	}
}
