// Package mongostore implements docstore.Store on MongoDB. Live views use change
// streams, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlink/database/docstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps each collection's documents keyed by their "id" field.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

type document struct {
	raw bson.Raw
}

func (d document) ID() string {
	id, _ := d.raw.Lookup("id").StringValueOK()
	return id
}

func (d document) DataTo(v any) error {
	return bson.Unmarshal(d.raw, v)
}

// EnsureIndexes creates the unique id index on every collection plus the given
// secondary single-field indexes.
func (s *Store) EnsureIndexes(ctx context.Context, secondary map[string][]string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for collection, fields := range secondary {
		models := []mongo.IndexModel{{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}}
		for _, f := range fields {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}})
		}
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.Raw
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching %s/%s: %w", collection, id, err)
	}
	return document{raw: raw}, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc any, pre *docstore.Precondition) error {
	coll := s.db.Collection(collection)
	if pre == nil {
		_, err := coll.ReplaceOne(ctx, bson.M{"id": id}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("error replacing %s/%s: %w", collection, id, err)
		}
		return nil
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"id": id, pre.Field: pre.Equals}, doc)
	if err != nil {
		return fmt.Errorf("error replacing %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("error checking %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return fmt.Errorf("%s/%s %s: %w", collection, id, pre.Field, docstore.ErrPreconditionFailed)
}

func (s *Store) Create(ctx context.Context, collection, id string, doc any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("error creating %s/%s: %w", collection, id, err)
	}
	return nil
}

func filterFor(t docstore.Target) bson.M {
	if t.IsDoc() {
		return bson.M{"id": t.DocID}
	}
	return bson.M{t.Field: t.Value}
}

func (s *Store) Query(ctx context.Context, t docstore.Target) ([]docstore.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := s.db.Collection(t.Collection).Find(ctx, filterFor(t), opts)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", t.Key(), err)
	}
	defer cursor.Close(ctx)

	var raws []bson.Raw
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", t.Key(), err)
	}
	out := make([]docstore.Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, document{raw: raw})
	}
	return out, nil
}

// Subscribe opens a change stream before reading the initial result so no change
// between the two is lost. Each matching change triggers a fresh read.
func (s *Store) Subscribe(ctx context.Context, t docstore.Target) (docstore.Watch, error) {
	var match bson.M
	if t.IsDoc() {
		match = bson.M{"$or": []bson.M{
			{"fullDocument.id": t.DocID},
			{"operationType": "delete"},
		}}
	} else {
		match = bson.M{"$or": []bson.M{
			{"fullDocument." + t.Field: t.Value},
			{"operationType": "delete"},
		}}
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	wctx, cancel := context.WithCancel(ctx)
	cs, err := s.db.Collection(t.Collection).Watch(wctx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error watching %s: %w", t.Key(), err)
	}
	return &watch{store: s, target: t, ctx: wctx, cancel: cancel, cs: cs}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// watch is driven by a single goroutine calling Next; Stop may be called from any
// goroutine and only cancels, the change stream is closed by Next.
type watch struct {
	store  *Store
	target docstore.Target
	ctx    context.Context
	cancel context.CancelFunc
	cs     *mongo.ChangeStream
	primed bool
}

func (w *watch) Next() ([]docstore.Document, error) {
	if w.primed {
		if !w.cs.Next(w.ctx) {
			err := w.cs.Err()
			_ = w.cs.Close(context.Background())
			if err == nil || w.ctx.Err() != nil {
				return nil, docstore.ErrWatchStopped
			}
			return nil, fmt.Errorf("change stream %s: %w", w.target.Key(), err)
		}
	}
	w.primed = true

	docs, err := w.store.Query(w.ctx, w.target)
	if err != nil && w.ctx.Err() != nil {
		_ = w.cs.Close(context.Background())
		return nil, docstore.ErrWatchStopped
	}
	return docs, err
}

func (w *watch) Stop() { w.cancel() }
