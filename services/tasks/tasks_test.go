package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketlink/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{ID: "x"}, nil
}

func TestBookingPushTaskRoundTrip(t *testing.T) {
	ev := models.BookingEvent{Type: models.EventStatusChanged, BookingID: "b1", NewStatus: models.StatusCompleted, RecipientPartyID: "s1"}
	task, err := NewBookingPushTask(ev)
	require.NoError(t, err)
	assert.Equal(t, TypeBookingPush, task.Type())

	got, err := ParseBookingEvent(task)
	require.NoError(t, err)
	assert.Equal(t, ev.BookingID, got.BookingID)
	assert.Equal(t, ev.NewStatus, got.NewStatus)
}

func TestScheduleReminder(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	enq := &recordingEnqueuer{}
	r := NewReminderScheduler(enq, time.Hour)
	r.Now = func() time.Time { return now }

	t.Run("future booking", func(t *testing.T) {
		err := r.ScheduleReminder(context.Background(), models.Booking{ID: "b1", ScheduledAt: now.Add(24 * time.Hour)})
		require.NoError(t, err)
		require.Len(t, enq.tasks, 1)
		assert.Equal(t, TypeBookingReminder, enq.tasks[0].Type())
		p, err := ParseReminder(enq.tasks[0])
		require.NoError(t, err)
		assert.Equal(t, "b1", p.BookingID)
	})

	t.Run("past booking is skipped", func(t *testing.T) {
		err := r.ScheduleReminder(context.Background(), models.Booking{ID: "b2", ScheduledAt: now.Add(-time.Minute)})
		require.NoError(t, err)
		assert.Len(t, enq.tasks, 1)
	})

	t.Run("duplicate task id is not an error", func(t *testing.T) {
		dup := &recordingEnqueuer{err: asynq.ErrTaskIDConflict}
		r := NewReminderScheduler(dup, time.Hour)
		r.Now = func() time.Time { return now }
		assert.NoError(t, r.ScheduleReminder(context.Background(), models.Booking{ID: "b3", ScheduledAt: now.Add(time.Hour)}))
	})

	t.Run("enqueue failure", func(t *testing.T) {
		bad := &recordingEnqueuer{err: errors.New("redis down")}
		r := NewReminderScheduler(bad, time.Hour)
		r.Now = func() time.Time { return now }
		assert.Error(t, r.ScheduleReminder(context.Background(), models.Booking{ID: "b4", ScheduledAt: now.Add(time.Hour)}))
	})
}
