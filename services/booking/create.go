package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketlink/database/docstore"
	"marketlink/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateDraft(d models.BookingDraft, now time.Time) error {
	switch {
	case strings.TrimSpace(d.SeekerID) == "":
		return &ValidationError{Field: "seekerId", Reason: "required"}
	case strings.TrimSpace(d.ProviderID) == "":
		return &ValidationError{Field: "providerId", Reason: "required"}
	case d.SeekerID == d.ProviderID:
		return &ValidationError{Field: "providerId", Reason: "must differ from seekerId"}
	case strings.TrimSpace(d.ServiceName) == "":
		return &ValidationError{Field: "serviceName", Reason: "required"}
	case d.TotalPrice < 0:
		return &ValidationError{Field: "totalPrice", Reason: "must not be negative"}
	case d.ScheduledAt.IsZero():
		return &ValidationError{Field: "scheduledAt", Reason: "required"}
	case d.ScheduledAt.Before(now):
		return &ValidationError{Field: "scheduledAt", Reason: "must not be in the past"}
	}
	return nil
}

// Create persists a new upcoming booking built from the draft. The seeker contact
// and provider name are copied as given and never refreshed.
func (s *DefaultBookingService) Create(ctx context.Context, draft models.BookingDraft) (models.Booking, error) {
	now := s.now()
	b := models.Booking{
		ID:            uuid.New().String(),
		SeekerID:      draft.SeekerID,
		ProviderID:    draft.ProviderID,
		ServiceName:   strings.TrimSpace(draft.ServiceName),
		Description:   draft.Description,
		Notes:         draft.Notes,
		TotalPrice:    draft.TotalPrice,
		ScheduledAt:   draft.ScheduledAt.UTC(),
		Status:        models.StatusUpcoming,
		SeekerContact: draft.SeekerContact,
		ProviderName:  draft.ProviderName,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateDraft(draft, now); err != nil {
		return models.Booking{}, err
	}

	wctx, cancel := context.WithTimeout(ctx, s.Policy.Timeout)
	defer cancel()
	if err := s.Repo.Create(wctx, &b); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return models.Booking{}, fmt.Errorf("booking id collision: %w", err)
		}
		return models.Booking{}, &SyncError{Op: "create", Attempts: 1, Err: err}
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", b.ID),
		zap.String("seekerId", b.SeekerID),
		zap.String("providerId", b.ProviderID),
		zap.Time("scheduledAt", b.ScheduledAt))

	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer scancel()
	if s.Relay != nil {
		event := models.BookingEvent{
			Type:             models.EventNewBooking,
			BookingID:        b.ID,
			NewStatus:        b.Status,
			RecipientPartyID: b.ProviderID,
			RecipientRole:    models.RoleProvider,
			ActorRole:        models.RoleSeeker,
			ServiceName:      b.ServiceName,
			ScheduledAt:      b.ScheduledAt,
			OccurredAt:       now,
		}
		if err := s.Relay.Publish(sctx, event); err != nil {
			s.Logger.Warn("new booking event not relayed", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	if s.Reminders != nil {
		if err := s.Reminders.ScheduleReminder(sctx, b); err != nil {
			s.Logger.Warn("booking reminder not scheduled", zap.String("bookingId", b.ID), zap.Error(err))
		}
	}
	return b, nil
}
