package database

import (
	"context"
	"fmt"
	"time"

	"marketlink/config"
	"marketlink/database/docstore"
	firestorestore "marketlink/database/firestore"
	memstore "marketlink/database/memory"
	mongostore "marketlink/database/mongo"
	"marketlink/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names shared by the repositories.
const (
	BookingsCollection = "bookings"
	MessagesCollection = "messages"
)

// Open connects the document store selected by config.AppConfig.StoreBackend.
func Open(ctx context.Context) (docstore.Store, error) {
	logger := utils.GetLogger()
	cfg := config.AppConfig

	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory document store; data is lost on restart")
		return memstore.New(), nil

	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		store := mongostore.New(client.Database(cfg.DatabaseName))
		err = store.EnsureIndexes(ctx, map[string][]string{
			BookingsCollection: {"seekerId", "providerId"},
			MessagesCollection: {"conversationId"},
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to MongoDB", zap.String("database", cfg.DatabaseName))
		return store, nil

	case "firestore", "":
		app, err := utils.FirebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
		}
		logger.Info("connected to Firestore")
		return firestorestore.New(client), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
