package booking

import (
	"time"

	bookingRepo "marketlink/database/repository/booking"
	"marketlink/models"
	"marketlink/services/live"
	"marketlink/services/notification"

	"go.uber.org/zap"
)

// CommitPolicy bounds the store writes made by Commit.
type CommitPolicy struct {
	// Timeout applies to each attempt separately.
	Timeout     time.Duration
	MaxAttempts int
	// Backoff is the delay before the second attempt; it doubles after that.
	Backoff time.Duration
}

var DefaultCommitPolicy = CommitPolicy{Timeout: 12 * time.Second, MaxAttempts: 3, Backoff: 200 * time.Millisecond}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo      bookingRepo.BookingRepository
	Relay     notification.Relay
	Notices   NoticePoster
	Reminders ReminderScheduler
	Policy    CommitPolicy
	Logger    *zap.Logger
	// Now is the clock; tests replace it.
	Now func() time.Time

	one  *live.Hub[models.Booking]
	sets *live.Hub[[]models.Booking]
}

// NewDefaultBookingService wires the service. Relay, notices and reminders are optional.
func NewDefaultBookingService(
	repo bookingRepo.BookingRepository,
	relay notification.Relay,
	notices NoticePoster,
	reminders ReminderScheduler,
	policy CommitPolicy,
	logger *zap.Logger,
) *DefaultBookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultCommitPolicy.MaxAttempts
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultCommitPolicy.Timeout
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultCommitPolicy.Backoff
	}
	return &DefaultBookingService{
		Repo:      repo,
		Relay:     relay,
		Notices:   notices,
		Reminders: reminders,
		Policy:    policy,
		Logger:    logger,
		Now:       time.Now,
		one: live.NewHub(live.Options[models.Booking]{
			// Per-booking delivery is monotonic by version; repeats are dropped.
			Accept: func(prev, next models.Booking) bool { return next.Version > prev.Version },
			Logger: logger.Named("booking-watch"),
		}),
		sets: live.NewHub(live.Options[[]models.Booking]{
			Logger: logger.Named("booking-set-watch"),
		}),
	}
}

func (s *DefaultBookingService) now() time.Time {
	return s.Now().UTC()
}
