// Package tasks defines the asynq task types exchanged between the API and the worker.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"marketlink/models"

	"github.com/hibiken/asynq"
)

const (
	// TypeBookingPush delivers one BookingEvent as a push notification.
	TypeBookingPush = "booking:push"
	// TypeBookingReminder fires ahead of a booking's scheduled time.
	TypeBookingReminder = "booking:reminder"
)

func NewBookingPushTask(event models.BookingEvent) (*asynq.Task, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal booking event: %w", err)
	}
	return asynq.NewTask(TypeBookingPush, b, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("tasks: marshal reminder: %w", err)
	}
	task := asynq.NewTask(TypeBookingReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		// One reminder per booking even if creation is retried.
		asynq.TaskID("reminder:" + payload.BookingID),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// ReminderPushOptions keeps the reminder push to one recipient unique, so a retried
// reminder never pushes twice to a party that was already enqueued. The id stays
// reserved for a day after the push completes.
func ReminderPushOptions(bookingID string, role models.Role) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID("reminder-push:" + bookingID + ":" + string(role)),
		asynq.Retention(24 * time.Hour),
	}
}

// ParseBookingEvent decodes a TypeBookingPush payload.
func ParseBookingEvent(t *asynq.Task) (models.BookingEvent, error) {
	var ev models.BookingEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("tasks: invalid booking event payload: %w", err)
	}
	return ev, nil
}

// ParseReminder decodes a TypeBookingReminder payload.
func ParseReminder(t *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("tasks: invalid reminder payload: %w", err)
	}
	return p, nil
}
