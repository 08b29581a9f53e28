package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlink/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// PushMessage is a rendered notification ready for a device.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a push to one registration token.
type Sender interface {
	Send(ctx context.Context, token string, msg PushMessage) error
}

// FCMSender sends through Firebase Cloud Messaging.
type FCMSender struct {
	Client *messaging.Client
}

func (s *FCMSender) Send(ctx context.Context, token string, msg PushMessage) error {
	m := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
	if _, err := s.Client.Send(ctx, m); err != nil {
		return fmt.Errorf("FCMSender: failed to send FCM message: %w", err)
	}
	return nil
}

// LogSender stands in for FCM when it is not configured; pushes are only logged.
type LogSender struct {
	Logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{Logger: logger}
}

func (s *LogSender) Send(_ context.Context, _ string, msg PushMessage) error {
	s.Logger.Info("push not sent, FCM disabled",
		zap.String("title", msg.Title),
		zap.String("bookingId", msg.Data["bookingId"]))
	return nil
}

// Render turns an event into the text shown to its recipient.
func Render(event models.BookingEvent) PushMessage {
	when := event.ScheduledAt.Format("2 January, 3:04 PM")
	msg := PushMessage{
		Data: map[string]string{
			"type":      event.Type,
			"bookingId": event.BookingID,
			"status":    string(event.NewStatus),
			"role":      string(event.RecipientRole),
		},
	}
	switch event.Type {
	case models.EventNewBooking:
		msg.Title = "New booking"
		msg.Body = fmt.Sprintf("You have a new %s booking on %s.", event.ServiceName, when)
	case models.EventReminder:
		msg.Title = "Upcoming booking"
		msg.Body = fmt.Sprintf("Your %s booking starts at %s.", event.ServiceName, when)
	default:
		switch event.NewStatus {
		case models.StatusCompleted:
			msg.Title = "Booking completed"
			msg.Body = fmt.Sprintf("Your %s booking on %s was marked completed.", event.ServiceName, when)
		case models.StatusCanceled:
			msg.Title = "Booking canceled"
			msg.Body = fmt.Sprintf("Your %s booking on %s was canceled by the %s.", event.ServiceName, when, event.ActorRole)
		default:
			msg.Title = "Booking updated"
			msg.Body = fmt.Sprintf("Your %s booking is now %s.", event.ServiceName, event.NewStatus)
		}
	}
	return msg
}

// Dispatcher resolves the recipient's device and sends the rendered event. It runs
// on the worker side of the queue.
type Dispatcher struct {
	Tokens TokenDirectory
	Sender Sender
	Logger *zap.Logger
}

// Deliver pushes event to its recipient. A recipient without a registered device is
// skipped without error.
func (d *Dispatcher) Deliver(ctx context.Context, event models.BookingEvent) error {
	token, err := d.Tokens.Token(ctx, event.RecipientRole, event.RecipientPartyID)
	if errors.Is(err, ErrNoDeviceToken) {
		d.Logger.Debug("no push target",
			zap.String("partyId", event.RecipientPartyID),
			zap.String("role", string(event.RecipientRole)))
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := d.Sender.Send(ctx, token, Render(event)); err != nil {
		return err
	}
	d.Logger.Info("push delivered",
		zap.String("bookingId", event.BookingID),
		zap.String("type", event.Type),
		zap.String("partyId", event.RecipientPartyID))
	return nil
}
