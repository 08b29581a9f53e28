package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusUpcoming  BookingStatus = "upcoming"
	StatusCompleted BookingStatus = "completed"
	StatusCanceled  BookingStatus = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Role identifies which side of a booking an actor is on.
type Role string

const (
	RoleSeeker   Role = "seeker"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleSeeker || r == RoleProvider
}

// Transition is a requested change of booking status.
type Transition string

const (
	TransitionCancel   Transition = "cancel"
	TransitionComplete Transition = "complete"
)

// SeekerContact is a snapshot of the seeker's contact details taken when the
// booking was created. It is never refreshed from the profile afterwards.
type SeekerContact struct {
	Name  string `firestore:"name" bson:"name" json:"name"`
	Email string `firestore:"email" bson:"email" json:"email"`
	Phone string `firestore:"phone" bson:"phone" json:"phone"`
}

// Booking is the shared record of one engagement between a seeker and a provider.
type Booking struct {
	ID              string        `firestore:"id" bson:"id" json:"id"`
	SeekerID        string        `firestore:"seekerId" bson:"seekerId" json:"seekerId"`
	ProviderID      string        `firestore:"providerId" bson:"providerId" json:"providerId"`
	ServiceName     string        `firestore:"serviceName" bson:"serviceName" json:"serviceName"`
	Description     string        `firestore:"description" bson:"description" json:"description"`
	Notes           string        `firestore:"notes" bson:"notes" json:"notes"`
	TotalPrice      float64       `firestore:"totalPrice" bson:"totalPrice" json:"totalPrice"`
	ScheduledAt     time.Time     `firestore:"scheduledAt" bson:"scheduledAt" json:"scheduledAt"`
	Status          BookingStatus `firestore:"status" bson:"status" json:"status"`
	StatusChangedBy Role          `firestore:"statusChangedBy" bson:"statusChangedBy" json:"statusChangedBy,omitempty"`
	SeekerContact   SeekerContact `firestore:"seekerContact" bson:"seekerContact" json:"seekerContact"`
	ProviderName    string        `firestore:"providerName" bson:"providerName" json:"providerName"`
	Version         int64         `firestore:"version" bson:"version" json:"version"`
	CreatedAt       time.Time     `firestore:"createdAt" bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `firestore:"updatedAt" bson:"updatedAt" json:"updatedAt"`
}

// PartyFor returns the party id holding the given role.
func (b Booking) PartyFor(role Role) string {
	if role == RoleProvider {
		return b.ProviderID
	}
	return b.SeekerID
}

// Counterpart returns the party on the other side of role.
func (b Booking) Counterpart(role Role) string {
	if role == RoleProvider {
		return b.SeekerID
	}
	return b.ProviderID
}

// BookingDraft is the input to booking creation.
type BookingDraft struct {
	SeekerID      string        `json:"seekerId"`
	ProviderID    string        `json:"providerId" binding:"required"`
	ServiceName   string        `json:"serviceName" binding:"required"`
	Description   string        `json:"description"`
	Notes         string        `json:"notes"`
	TotalPrice    float64       `json:"totalPrice"`
	ScheduledAt   time.Time     `json:"scheduledAt" binding:"required"`
	SeekerContact SeekerContact `json:"seekerContact"`
	ProviderName  string        `json:"providerName"`
}

// TransitionRequest is the body of a status change request.
type TransitionRequest struct {
	Transition Transition `json:"transition" binding:"required"`
	// Version is the version of the caller's cached copy; 0 means "whatever is current".
	Version int64 `json:"version"`
}
