package notification

import (
	"context"
	"fmt"

	"marketlink/models"
	"marketlink/services/tasks"
)

// QueueRelay hands events to the asynq worker, which performs the push.
type QueueRelay struct {
	Client tasks.Enqueuer
}

func NewQueueRelay(client tasks.Enqueuer) *QueueRelay {
	return &QueueRelay{Client: client}
}

func (q *QueueRelay) Publish(ctx context.Context, event models.BookingEvent) error {
	task, err := tasks.NewBookingPushTask(event)
	if err != nil {
		return err
	}
	if _, err := q.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("QueueRelay: enqueue %s for booking %s: %w", event.Type, event.BookingID, err)
	}
	return nil
}
