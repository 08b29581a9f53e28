package bookingRepo

import (
	"context"
	"fmt"

	"marketlink/database/docstore"
	"marketlink/database/repository"
	"marketlink/models"
)

// StoreBookingRepo implements BookingRepository on any docstore.Store.
type StoreBookingRepo struct {
	store      docstore.Store
	collection string
}

// NewStoreBookingRepo constructs a new instance of StoreBookingRepo.
func NewStoreBookingRepo(store docstore.Store, collection string) *StoreBookingRepo {
	return &StoreBookingRepo{store: store, collection: collection}
}

// GetByID retrieves a booking by its ID.
func (repo *StoreBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	doc, err := repo.store.Get(ctx, repo.collection, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, err)
	}
	b, err := repository.Decode[models.Booking](doc)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new booking document.
func (repo *StoreBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if err := repo.store.Create(ctx, repo.collection, booking.ID, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// Replace overwrites the booking document, guarded by its version.
func (repo *StoreBookingRepo) Replace(ctx context.Context, booking *models.Booking, expectedVersion int64) error {
	pre := docstore.IfFieldEquals("version", expectedVersion)
	if err := repo.store.Put(ctx, repo.collection, booking.ID, booking, pre); err != nil {
		return fmt.Errorf("error replacing booking %s: %w", booking.ID, err)
	}
	return nil
}
