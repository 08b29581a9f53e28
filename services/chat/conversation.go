package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"marketlink/database/docstore"
	"marketlink/models"
)

const (
	pairPrefix    = "pair_"
	bookingPrefix = "booking_"
)

// PairConversationID derives the conversation of two parties; argument order does
// not matter. The first id is length-prefixed (pair_<len>_<a>_<b>) so ids that
// contain the separator still decode to exactly one pair.
func PairConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return pairPrefix + strconv.Itoa(len(a)) + "_" + a + "_" + b
}

// parsePair decodes a pair conversation id into its two ordered party ids.
func parsePair(conversationID string) (string, string, bool) {
	rest, ok := strings.CutPrefix(conversationID, pairPrefix)
	if !ok {
		return "", "", false
	}
	digits, rest, ok := strings.Cut(rest, "_")
	if !ok {
		return "", "", false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 || strconv.Itoa(n) != digits || n+1 >= len(rest) {
		return "", "", false
	}
	a, b := rest[:n], rest[n+1:]
	if rest[n] != '_' || !(a < b) {
		return "", "", false
	}
	return a, b, true
}

// BookingConversationID is the conversation scoped to one booking.
func BookingConversationID(bookingID string) string {
	return bookingPrefix + bookingID
}

// BookingLookup resolves the parties of a booking-scoped conversation.
type BookingLookup interface {
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
}

// Participants returns the two party ids admitted to the conversation.
func (s *DefaultChatService) Participants(ctx context.Context, conversationID string) ([]string, error) {
	switch {
	case strings.HasPrefix(conversationID, bookingPrefix):
		id := strings.TrimPrefix(conversationID, bookingPrefix)
		if id == "" || s.Bookings == nil {
			return nil, ErrInvalidConversation
		}
		b, err := s.Bookings.GetByID(ctx, id)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrInvalidConversation
		}
		if err != nil {
			return nil, fmt.Errorf("resolving conversation %s: %w", conversationID, err)
		}
		return []string{b.SeekerID, b.ProviderID}, nil

	case strings.HasPrefix(conversationID, pairPrefix):
		if a, b, ok := parsePair(conversationID); ok {
			return []string{a, b}, nil
		}
	}
	return nil, ErrInvalidConversation
}

// IsParticipant reports whether partyID may read and write the conversation.
func (s *DefaultChatService) IsParticipant(ctx context.Context, conversationID, partyID string) (bool, error) {
	parties, err := s.Participants(ctx, conversationID)
	if err != nil {
		return false, err
	}
	for _, p := range parties {
		if p == partyID {
			return true, nil
		}
	}
	return false, nil
}
