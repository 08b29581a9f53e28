package conversationRepo

import (
	"context"

	"marketlink/database/repository"
	"marketlink/models"
)

// ConversationRepository stores the append-only message log of every conversation.
type ConversationRepository interface {
	// Append writes a new message; an existing id is never overwritten.
	Append(ctx context.Context, msg *models.Message) error
	// List returns the conversation's messages in render order.
	List(ctx context.Context, conversationID string) ([]models.Message, error)
	// Watch streams the ordered message list on subscribe and after every change.
	Watch(ctx context.Context, conversationID string) (*repository.Watch[[]models.Message], error)
}
