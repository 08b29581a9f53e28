package models

import "time"

// BookingEvent is emitted to the notification relay whenever a booking is created
// or changes status.
type BookingEvent struct {
	Type             string        `json:"type"`
	BookingID        string        `json:"bookingId"`
	NewStatus        BookingStatus `json:"newStatus"`
	RecipientPartyID string        `json:"recipientPartyId"`
	RecipientRole    Role          `json:"recipientRole"`
	ActorRole        Role          `json:"actorRole,omitempty"`
	ServiceName      string        `json:"serviceName"`
	ScheduledAt      time.Time     `json:"scheduledAt"`
	OccurredAt       time.Time     `json:"occurredAt"`
}

const (
	EventNewBooking    = "new_booking"
	EventStatusChanged = "booking_status"
	EventReminder      = "booking_reminder"
)

// ReminderPayload is the asynq payload for a booking reminder.
type ReminderPayload struct {
	BookingID   string    `json:"bookingId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}
