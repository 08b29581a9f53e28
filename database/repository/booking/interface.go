package bookingRepo

import (
	"context"

	"marketlink/database/repository"
	"marketlink/models"
)

// BookingRepository is the typed data access for booking documents.
type BookingRepository interface {
	// GetByID returns docstore.ErrNotFound (wrapped) when the booking does not exist.
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// Create writes a new booking; the id must be unused.
	Create(ctx context.Context, booking *models.Booking) error
	// Replace fully replaces the stored booking if its version still equals expectedVersion.
	Replace(ctx context.Context, booking *models.Booking, expectedVersion int64) error
	// ListByParty returns every booking where the party holds role, ordered by scheduledAt then id.
	ListByParty(ctx context.Context, partyID string, role models.Role) ([]models.Booking, error)
	// WatchByID streams the booking on subscribe and after every change.
	WatchByID(ctx context.Context, bookingID string) (*repository.Watch[models.Booking], error)
	// WatchByParty streams the party's full booking set on subscribe and after every change.
	WatchByParty(ctx context.Context, partyID string, role models.Role) (*repository.Watch[[]models.Booking], error)
}
