// Package chat is the conversation channel between a seeker and a provider. Messages
// are append-only, so concurrent senders never conflict.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	conversationRepo "marketlink/database/repository/conversation"
	"marketlink/models"
	"marketlink/services/live"
	"marketlink/services/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Window bounds the messages a watcher receives. Limit 0 means all of them;
// otherwise only the newest Limit messages are delivered.
type Window struct {
	Limit int
}

func (w Window) apply(msgs []models.Message) []models.Message {
	if w.Limit <= 0 || len(msgs) <= w.Limit {
		return msgs
	}
	return msgs[len(msgs)-w.Limit:]
}

// ChatService is the conversation API used by handlers and the booking core.
type ChatService interface {
	Send(ctx context.Context, conversationID, senderID, body string) (models.Message, error)
	SendAttachment(ctx context.Context, conversationID, senderID string, asset storage.Asset) (models.Message, error)
	PostNotice(ctx context.Context, conversationID, body string) error
	List(ctx context.Context, conversationID string, window Window) ([]models.Message, error)
	Watch(ctx context.Context, conversationID string, window Window) (*live.Subscription[[]models.Message], error)
	Participants(ctx context.Context, conversationID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, partyID string) (bool, error)
}

// DefaultChatService implements ChatService.
type DefaultChatService struct {
	Repo     conversationRepo.ConversationRepository
	Uploader storage.Uploader
	Bookings BookingLookup
	Logger   *zap.Logger
	Now      func() time.Time

	hub *live.Hub[[]models.Message]
}

func NewDefaultChatService(
	repo conversationRepo.ConversationRepository,
	uploader storage.Uploader,
	bookings BookingLookup,
	logger *zap.Logger,
) *DefaultChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultChatService{
		Repo:     repo,
		Uploader: uploader,
		Bookings: bookings,
		Logger:   logger,
		Now:      time.Now,
		hub:      live.NewHub(live.Options[[]models.Message]{Logger: logger.Named("conversation-watch")}),
	}
}

// Send appends a text message from a participant.
func (s *DefaultChatService) Send(ctx context.Context, conversationID, senderID, body string) (models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if err := s.checkSender(ctx, conversationID, senderID); err != nil {
		return models.Message{}, err
	}
	msg := s.newMessage(conversationID, senderID, models.KindText)
	msg.Body = body
	if err := s.append(ctx, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// SendAttachment uploads the asset first and only then appends a message pointing
// at it. A failed upload leaves the conversation untouched.
func (s *DefaultChatService) SendAttachment(ctx context.Context, conversationID, senderID string, asset storage.Asset) (models.Message, error) {
	if err := s.checkSender(ctx, conversationID, senderID); err != nil {
		return models.Message{}, err
	}
	if s.Uploader == nil {
		return models.Message{}, &UploadError{Name: asset.Name, Err: fmt.Errorf("attachments are not configured")}
	}
	ref, err := s.Uploader.Upload(ctx, asset)
	if err != nil {
		return models.Message{}, &UploadError{Name: asset.Name, Err: err}
	}
	msg := s.newMessage(conversationID, senderID, models.KindAttachment)
	msg.AttachmentRef = ref
	if err := s.append(ctx, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// PostNotice appends a system notice.
func (s *DefaultChatService) PostNotice(ctx context.Context, conversationID, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}
	msg := s.newMessage(conversationID, models.SystemSender, models.KindNotice)
	msg.Body = body
	return s.append(ctx, &msg)
}

// List returns the messages in render order.
func (s *DefaultChatService) List(ctx context.Context, conversationID string, window Window) ([]models.Message, error) {
	msgs, err := s.Repo.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return window.apply(msgs), nil
}

// Watch delivers the full ordered message list on subscribe and after every change.
// Watchers of the same conversation and window share one store subscription.
func (s *DefaultChatService) Watch(ctx context.Context, conversationID string, window Window) (*live.Subscription[[]models.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}
	key := fmt.Sprintf("%s#%d", conversationID, max(window.Limit, 0))
	return s.hub.Subscribe(ctx, key, func(fctx context.Context) (live.Source[[]models.Message], error) {
		w, err := s.Repo.Watch(fctx, conversationID)
		if err != nil {
			return nil, err
		}
		return &windowed{src: w, window: window}, nil
	})
}

type windowed struct {
	src    live.Source[[]models.Message]
	window Window
}

func (w *windowed) Next() ([]models.Message, error) {
	msgs, err := w.src.Next()
	if err != nil {
		return nil, err
	}
	return w.window.apply(msgs), nil
}

func (w *windowed) Stop() { w.src.Stop() }

func (s *DefaultChatService) checkSender(ctx context.Context, conversationID, senderID string) error {
	ok, err := s.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func (s *DefaultChatService) newMessage(conversationID, senderID string, kind models.MessageKind) models.Message {
	return models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		SentAt:         s.Now().UTC(),
	}
}

func (s *DefaultChatService) append(ctx context.Context, msg *models.Message) error {
	if err := s.Repo.Append(ctx, msg); err != nil {
		return err
	}
	s.Logger.Debug("message appended",
		zap.String("conversationId", msg.ConversationID),
		zap.String("messageId", msg.ID),
		zap.String("kind", string(msg.Kind)))
	return nil
}
