package conversationRepo

import (
	"context"
	"fmt"

	"marketlink/database/docstore"
	"marketlink/database/repository"
	"marketlink/models"
)

// StoreConversationRepo implements ConversationRepository on a docstore.Store.
// Messages of all conversations live in one collection keyed by message id.
type StoreConversationRepo struct {
	store      docstore.Store
	collection string
}

func NewStoreConversationRepo(store docstore.Store, collection string) *StoreConversationRepo {
	return &StoreConversationRepo{store: store, collection: collection}
}

func (repo *StoreConversationRepo) Append(ctx context.Context, msg *models.Message) error {
	if err := repo.store.Create(ctx, repo.collection, msg.ID, msg); err != nil {
		return fmt.Errorf("error appending message to %s: %w", msg.ConversationID, err)
	}
	return nil
}

func (repo *StoreConversationRepo) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	docs, err := repo.store.Query(ctx, repo.target(conversationID))
	if err != nil {
		return nil, fmt.Errorf("error listing conversation %s: %w", conversationID, err)
	}
	msgs, _, err := decodeMessages(docs)
	return msgs, err
}

func (repo *StoreConversationRepo) Watch(ctx context.Context, conversationID string) (*repository.Watch[[]models.Message], error) {
	w, err := repo.store.Subscribe(ctx, repo.target(conversationID))
	if err != nil {
		return nil, fmt.Errorf("error watching conversation %s: %w", conversationID, err)
	}
	return repository.NewWatch(w, decodeMessages), nil
}

func (repo *StoreConversationRepo) target(conversationID string) docstore.Target {
	return docstore.Where(repo.collection, "conversationId", conversationID)
}

func decodeMessages(docs []docstore.Document) ([]models.Message, bool, error) {
	msgs, err := repository.DecodeAll[models.Message](docs)
	if err != nil {
		return nil, false, err
	}
	models.SortMessages(msgs)
	return msgs, true, nil
}
