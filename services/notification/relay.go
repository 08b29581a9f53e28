// Package notification relays booking events to the parties involved. Delivery is
// fire-and-forget from the booking core's point of view.
package notification

import (
	"context"
	"errors"

	"marketlink/models"

	"go.uber.org/zap"
)

// Relay accepts a booking event for delivery.
type Relay interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

// MultiRelay publishes to every relay and joins their errors.
type MultiRelay struct {
	Relays []Relay
	Logger *zap.Logger
}

func NewMultiRelay(logger *zap.Logger, relays ...Relay) *MultiRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiRelay{Relays: relays, Logger: logger}
}

func (m *MultiRelay) Publish(ctx context.Context, event models.BookingEvent) error {
	var errs []error
	for _, r := range m.Relays {
		if err := r.Publish(ctx, event); err != nil {
			m.Logger.Warn("relay publish failed",
				zap.String("bookingId", event.BookingID),
				zap.String("type", event.Type),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
