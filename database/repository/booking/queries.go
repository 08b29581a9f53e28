package bookingRepo

import (
	"context"
	"fmt"
	"sort"

	"marketlink/database/docstore"
	"marketlink/database/repository"
	"marketlink/models"
)

func partyField(role models.Role) string {
	if role == models.RoleProvider {
		return "providerId"
	}
	return "seekerId"
}

// SortBookings orders bookings by scheduledAt, then id.
func SortBookings(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.ID < b.ID
	})
}

func decodeSet(docs []docstore.Document) ([]models.Booking, bool, error) {
	bookings, err := repository.DecodeAll[models.Booking](docs)
	if err != nil {
		return nil, false, err
	}
	SortBookings(bookings)
	return bookings, true, nil
}

// ListByParty fetches the bookings a party takes part in under the given role.
func (repo *StoreBookingRepo) ListByParty(ctx context.Context, partyID string, role models.Role) ([]models.Booking, error) {
	docs, err := repo.store.Query(ctx, docstore.Where(repo.collection, partyField(role), partyID))
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for %s %s: %w", role, partyID, err)
	}
	bookings, _, err := decodeSet(docs)
	return bookings, err
}

// WatchByID subscribes to one booking. Snapshots in which the document does not
// exist are skipped.
func (repo *StoreBookingRepo) WatchByID(ctx context.Context, bookingID string) (*repository.Watch[models.Booking], error) {
	w, err := repo.store.Subscribe(ctx, docstore.Doc(repo.collection, bookingID))
	if err != nil {
		return nil, fmt.Errorf("error watching booking %s: %w", bookingID, err)
	}
	return repository.NewWatch(w, func(docs []docstore.Document) (models.Booking, bool, error) {
		if len(docs) == 0 {
			return models.Booking{}, false, nil
		}
		b, err := repository.Decode[models.Booking](docs[0])
		return b, err == nil, err
	}), nil
}

// WatchByParty subscribes to the set of bookings a party takes part in.
func (repo *StoreBookingRepo) WatchByParty(ctx context.Context, partyID string, role models.Role) (*repository.Watch[[]models.Booking], error) {
	w, err := repo.store.Subscribe(ctx, docstore.Where(repo.collection, partyField(role), partyID))
	if err != nil {
		return nil, fmt.Errorf("error watching bookings for %s %s: %w", role, partyID, err)
	}
	return repository.NewWatch(w, decodeSet), nil
}
