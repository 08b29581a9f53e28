package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlink/models"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the API side uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderScheduler enqueues a reminder Lead before each booking.
type ReminderScheduler struct {
	Client Enqueuer
	Lead   time.Duration
	Now    func() time.Time
}

func NewReminderScheduler(client Enqueuer, lead time.Duration) *ReminderScheduler {
	return &ReminderScheduler{Client: client, Lead: lead, Now: time.Now}
}

// ScheduleReminder enqueues the reminder. Bookings that start within Lead get it
// right away; bookings already in the past get none.
func (r *ReminderScheduler) ScheduleReminder(ctx context.Context, b models.Booking) error {
	now := r.Now()
	if !b.ScheduledAt.After(now) {
		return nil
	}
	fireAt := b.ScheduledAt.Add(-r.Lead)
	if fireAt.Before(now) {
		fireAt = now
	}
	task, opts, err := NewReminderTask(models.ReminderPayload{BookingID: b.ID, ScheduledAt: b.ScheduledAt}, fireAt)
	if err != nil {
		return err
	}
	if _, err := r.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("tasks: enqueue reminder for %s: %w", b.ID, err)
	}
	return nil
}
