package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketlink/models"
	"marketlink/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockRelay struct{ mock.Mock }

func (m *mockRelay) Publish(ctx context.Context, event models.BookingEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) SetToken(ctx context.Context, role models.Role, partyID, token string) error {
	return m.Called(ctx, role, partyID, token).Error(0)
}

func (m *mockTokens) Token(ctx context.Context, role models.Role, partyID string) (string, error) {
	args := m.Called(ctx, role, partyID)
	return args.String(0), args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, token string, msg PushMessage) error {
	return m.Called(ctx, token, msg).Error(0)
}

func statusEvent() models.BookingEvent {
	return models.BookingEvent{
		Type:             models.EventStatusChanged,
		BookingID:        "b1",
		NewStatus:        models.StatusCanceled,
		RecipientPartyID: "p1",
		RecipientRole:    models.RoleProvider,
		ActorRole:        models.RoleSeeker,
		ServiceName:      "Math Tutoring",
		ScheduledAt:      time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestMultiRelayPublishesToAllAndJoinsErrors(t *testing.T) {
	ev := statusEvent()
	ok := &mockRelay{}
	ok.On("Publish", mock.Anything, ev).Return(nil)
	failing := &mockRelay{}
	failing.On("Publish", mock.Anything, ev).Return(errors.New("broker down"))

	err := NewMultiRelay(zap.NewNop(), failing, ok).Publish(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestRender(t *testing.T) {
	msg := Render(statusEvent())
	assert.Equal(t, "Booking canceled", msg.Title)
	assert.Contains(t, msg.Body, "Math Tutoring")
	assert.Contains(t, msg.Body, "seeker")
	assert.Equal(t, "b1", msg.Data["bookingId"])
	assert.Equal(t, "provider", msg.Data["role"])

	created := statusEvent()
	created.Type = models.EventNewBooking
	assert.Equal(t, "New booking", Render(created).Title)
}

func TestDispatcherDeliver(t *testing.T) {
	ev := statusEvent()

	t.Run("sends to registered device", func(t *testing.T) {
		tokens := &mockTokens{}
		tokens.On("Token", mock.Anything, models.RoleProvider, "p1").Return("tok-1", nil)
		sender := &mockSender{}
		sender.On("Send", mock.Anything, "tok-1", Render(ev)).Return(nil)

		d := &Dispatcher{Tokens: tokens, Sender: sender, Logger: zap.NewNop()}
		require.NoError(t, d.Deliver(context.Background(), ev))
		sender.AssertExpectations(t)
	})

	t.Run("skips party without device", func(t *testing.T) {
		tokens := &mockTokens{}
		tokens.On("Token", mock.Anything, models.RoleProvider, "p1").Return("", ErrNoDeviceToken)
		sender := &mockSender{}

		d := &Dispatcher{Tokens: tokens, Sender: sender, Logger: zap.NewNop()}
		require.NoError(t, d.Deliver(context.Background(), ev))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("send failure is returned for retry", func(t *testing.T) {
		tokens := &mockTokens{}
		tokens.On("Token", mock.Anything, models.RoleProvider, "p1").Return("tok-1", nil)
		sender := &mockSender{}
		sender.On("Send", mock.Anything, "tok-1", mock.Anything).Return(errors.New("unavailable"))

		d := &Dispatcher{Tokens: tokens, Sender: sender, Logger: zap.NewNop()}
		assert.Error(t, d.Deliver(context.Background(), ev))
	})

	t.Run("log sender stands in without FCM", func(t *testing.T) {
		tokens := &mockTokens{}
		tokens.On("Token", mock.Anything, models.RoleProvider, "p1").Return("tok-1", nil)
		core, logs := observer.New(zapcore.InfoLevel)

		d := &Dispatcher{Tokens: tokens, Sender: NewLogSender(zap.New(core)), Logger: zap.NewNop()}
		require.NoError(t, d.Deliver(context.Background(), ev))

		entries := logs.FilterMessage("push not sent, FCM disabled").All()
		require.Len(t, entries, 1)
		assert.Equal(t, ev.BookingID, entries[0].ContextMap()["bookingId"])
	})
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func TestQueueRelayEnqueuesPushTask(t *testing.T) {
	enq := &recordingEnqueuer{}
	require.NoError(t, NewQueueRelay(enq).Publish(context.Background(), statusEvent()))
	require.Len(t, enq.tasks, 1)

	ev, err := tasks.ParseBookingEvent(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "b1", ev.BookingID)

	enq.err = errors.New("redis down")
	assert.Error(t, NewQueueRelay(enq).Publish(context.Background(), statusEvent()))
}
