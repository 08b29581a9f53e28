package booking

import (
	"errors"
	"fmt"

	"marketlink/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrNotParty is returned when the caller does not hold the role it acts under.
	ErrNotParty = errors.New("caller is not a party to this booking")
)

// LifecycleErrorKind says which rule of the transition table was broken.
type LifecycleErrorKind string

const (
	KindRole       LifecycleErrorKind = "role"
	KindTransition LifecycleErrorKind = "transition"
)

// LifecycleError reports a transition the actor may never perform.
type LifecycleError struct {
	Kind       LifecycleErrorKind
	Transition models.Transition
	Role       models.Role
	Status     models.BookingStatus
}

func (e *LifecycleError) Error() string {
	if e.Kind == KindRole {
		return fmt.Sprintf("role %q may not %s a booking", e.Role, e.Transition)
	}
	return fmt.Sprintf("unknown transition %q from status %s", e.Transition, e.Status)
}

// StaleStateError means the caller's copy raced a transition by the other party.
// The caller must discard its copy; Current carries the latest known record.
type StaleStateError struct {
	BookingID string
	Status    models.BookingStatus
	Current   *models.Booking
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("booking %s is already %s", e.BookingID, e.Status)
}

// SyncError is a store failure that outlived the retry budget.
type SyncError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ValidationError rejects a booking draft.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
