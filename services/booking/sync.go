package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlink/database/docstore"
	"marketlink/models"
	"marketlink/services/chat"
	"marketlink/services/live"

	"go.uber.org/zap"
)

const sideEffectTimeout = 5 * time.Second

// Get reads the current stored record.
func (s *DefaultBookingService) Get(ctx context.Context, bookingID string) (models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return models.Booking{}, err
	}
	return *b, nil
}

// ListForParty is the one-shot form of WatchFiltered.
func (s *DefaultBookingService) ListForParty(ctx context.Context, partyID string, role models.Role) ([]models.Booking, error) {
	if !role.Valid() {
		return nil, &LifecycleError{Kind: KindRole, Role: role}
	}
	return s.Repo.ListByParty(ctx, partyID, role)
}

// WatchOne streams a booking to the caller: the current record first, then every
// newer version. Watchers of the same id share one store subscription.
func (s *DefaultBookingService) WatchOne(ctx context.Context, bookingID string) (*live.Subscription[models.Booking], error) {
	if _, err := s.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.one.Subscribe(ctx, bookingID, func(fctx context.Context) (live.Source[models.Booking], error) {
		w, err := s.Repo.WatchByID(fctx, bookingID)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}

// WatchFiltered streams the full set of bookings the party holds under role,
// re-delivered in full after every change.
func (s *DefaultBookingService) WatchFiltered(ctx context.Context, partyID string, role models.Role) (*live.Subscription[[]models.Booking], error) {
	if !role.Valid() {
		return nil, &LifecycleError{Kind: KindRole, Role: role}
	}
	key := string(role) + ":" + partyID
	return s.sets.Subscribe(ctx, key, func(fctx context.Context) (live.Source[[]models.Booking], error) {
		w, err := s.Repo.WatchByParty(fctx, partyID, role)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}

// Commit applies t to the caller's copy of the booking and writes the result back,
// provided nobody has written the booking since that copy was read.
func (s *DefaultBookingService) Commit(ctx context.Context, record models.Booking, t models.Transition, role models.Role) (models.Booking, error) {
	next, err := Apply(record, t, role)
	if err != nil {
		return models.Booking{}, err
	}
	next.Version = record.Version + 1
	next.UpdatedAt = s.now()

	backoff := s.Policy.Backoff
	var lastErr error
	for attempt := 1; attempt <= s.Policy.MaxAttempts; attempt++ {
		err := s.replace(ctx, &next, record.Version)
		switch {
		case err == nil:
			s.afterCommit(ctx, next, role)
			return next, nil
		case errors.Is(err, docstore.ErrPreconditionFailed):
			return s.resolveConflict(ctx, next, role, attempt)
		case errors.Is(err, docstore.ErrNotFound):
			return models.Booking{}, ErrBookingNotFound
		case ctx.Err() != nil:
			return models.Booking{}, &SyncError{Op: "commit", Attempts: attempt, Err: ctx.Err()}
		case docstore.Permanent(err):
			return models.Booking{}, &SyncError{Op: "commit", Attempts: attempt, Err: err}
		}

		lastErr = err
		s.Logger.Warn("booking commit attempt failed",
			zap.String("bookingId", record.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == s.Policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return models.Booking{}, &SyncError{Op: "commit", Attempts: attempt, Err: ctx.Err()}
		}
		backoff *= 2
	}
	return models.Booking{}, &SyncError{Op: "commit", Attempts: s.Policy.MaxAttempts, Err: lastErr}
}

// CommitByID loads the booking, checks the actor holds role on it and commits.
// A non-zero req.Version must match the stored version.
func (s *DefaultBookingService) CommitByID(ctx context.Context, bookingID, actorID string, role models.Role, req models.TransitionRequest) (models.Booking, error) {
	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !role.Valid() {
		return models.Booking{}, &LifecycleError{Kind: KindRole, Transition: req.Transition, Role: role, Status: current.Status}
	}
	if current.PartyFor(role) != actorID {
		return models.Booking{}, ErrNotParty
	}
	if req.Version != 0 && req.Version != current.Version {
		return models.Booking{}, &StaleStateError{BookingID: bookingID, Status: current.Status, Current: &current}
	}
	return s.Commit(ctx, current, req.Transition, role)
}

func (s *DefaultBookingService) replace(ctx context.Context, next *models.Booking, expected int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.Policy.Timeout)
	defer cancel()
	return s.Repo.Replace(ctx, next, expected)
}

// resolveConflict decides a failed version check. If the stored record is exactly
// what this commit meant to write, an earlier attempt landed and the commit stands.
func (s *DefaultBookingService) resolveConflict(ctx context.Context, intended models.Booking, role models.Role, attempts int) (models.Booking, error) {
	rctx, cancel := context.WithTimeout(ctx, s.Policy.Timeout)
	defer cancel()
	current, err := s.Get(rctx, intended.ID)
	if errors.Is(err, ErrBookingNotFound) {
		return models.Booking{}, err
	}
	if err != nil {
		return models.Booking{}, &SyncError{Op: "refetch", Attempts: attempts, Err: err}
	}
	if current.Version == intended.Version &&
		current.Status == intended.Status &&
		current.StatusChangedBy == intended.StatusChangedBy {
		s.afterCommit(ctx, current, role)
		return current, nil
	}
	return models.Booking{}, &StaleStateError{BookingID: intended.ID, Status: current.Status, Current: &current}
}

// afterCommit emits the relay event and the conversation notice. Neither may fail
// the commit.
func (s *DefaultBookingService) afterCommit(ctx context.Context, b models.Booking, actor models.Role) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	recipientRole := models.RoleSeeker
	if actor == models.RoleSeeker {
		recipientRole = models.RoleProvider
	}
	if s.Relay != nil {
		event := models.BookingEvent{
			Type:             models.EventStatusChanged,
			BookingID:        b.ID,
			NewStatus:        b.Status,
			RecipientPartyID: b.Counterpart(actor),
			RecipientRole:    recipientRole,
			ActorRole:        actor,
			ServiceName:      b.ServiceName,
			ScheduledAt:      b.ScheduledAt,
			OccurredAt:       b.UpdatedAt,
		}
		if err := s.Relay.Publish(ctx, event); err != nil {
			s.Logger.Warn("booking event not relayed", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	if s.Notices != nil {
		if err := s.Notices.PostNotice(ctx, chat.BookingConversationID(b.ID), statusNotice(b)); err != nil {
			s.Logger.Warn("booking notice not posted", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
}

func statusNotice(b models.Booking) string {
	switch b.Status {
	case models.StatusCompleted:
		return fmt.Sprintf("%s was marked completed by the provider.", b.ServiceName)
	case models.StatusCanceled:
		return fmt.Sprintf("%s was canceled by the %s.", b.ServiceName, b.StatusChangedBy)
	}
	return fmt.Sprintf("%s is now %s.", b.ServiceName, b.Status)
}
