package booking

import (
	"context"

	"marketlink/models"
	"marketlink/services/live"
)

// BookingService is the booking core: creation, reads, live views and status commits.
type BookingService interface {
	Create(ctx context.Context, draft models.BookingDraft) (models.Booking, error)
	Get(ctx context.Context, bookingID string) (models.Booking, error)
	ListForParty(ctx context.Context, partyID string, role models.Role) ([]models.Booking, error)
	WatchOne(ctx context.Context, bookingID string) (*live.Subscription[models.Booking], error)
	WatchFiltered(ctx context.Context, partyID string, role models.Role) (*live.Subscription[[]models.Booking], error)
	Commit(ctx context.Context, record models.Booking, transition models.Transition, role models.Role) (models.Booking, error)
	CommitByID(ctx context.Context, bookingID, actorID string, role models.Role, req models.TransitionRequest) (models.Booking, error)
}

// NoticePoster posts system notices into a booking's conversation.
type NoticePoster interface {
	PostNotice(ctx context.Context, conversationID, body string) error
}

// ReminderScheduler arranges a reminder push ahead of a booking.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, b models.Booking) error
}
