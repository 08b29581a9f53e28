// Package firestorestore implements docstore.Store on Cloud Firestore.
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"marketlink/database/docstore"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store wraps a Firestore client obtained from the firebase app.
type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

type document struct {
	snap *firestore.DocumentSnapshot
}

func (d document) ID() string { return d.snap.Ref.ID }

func (d document) DataTo(v any) error { return d.snap.DataTo(v) }

// classify maps gRPC status codes onto docstore sentinels.
func classify(err error, what string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", what, docstore.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", what, docstore.ErrAlreadyExists)
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w", what, docstore.ErrPreconditionFailed)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, classify(err, "firestore get "+collection+"/"+id)
	}
	return document{snap: snap}, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc any, pre *docstore.Precondition) error {
	ref := s.client.Collection(collection).Doc(id)
	what := "firestore put " + collection + "/" + id
	if pre == nil {
		if _, err := ref.Set(ctx, doc); err != nil {
			return classify(err, what)
		}
		return nil
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		stored, err := snap.DataAt(pre.Field)
		if err != nil || !pre.Matches(stored) {
			return docstore.ErrPreconditionFailed
		}
		return tx.Set(ref, doc)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return fmt.Errorf("%s %s: %w", what, pre.Field, err)
	}
	return classify(err, what)
}

func (s *Store) Create(ctx context.Context, collection, id string, doc any) error {
	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, doc); err != nil {
		return classify(err, "firestore create "+collection+"/"+id)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, t docstore.Target) ([]docstore.Document, error) {
	if t.IsDoc() {
		d, err := s.Get(ctx, t.Collection, t.DocID)
		if errors.Is(err, docstore.ErrNotFound) {
			return []docstore.Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []docstore.Document{d}, nil
	}
	snaps, err := s.client.Collection(t.Collection).Where(t.Field, "==", t.Value).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err, "firestore query "+t.Key())
	}
	return wrap(snaps), nil
}

func wrap(snaps []*firestore.DocumentSnapshot) []docstore.Document {
	out := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, document{snap: snap})
	}
	return out
}

func (s *Store) Subscribe(ctx context.Context, t docstore.Target) (docstore.Watch, error) {
	if t.IsDoc() {
		return &docWatch{it: s.client.Collection(t.Collection).Doc(t.DocID).Snapshots(ctx)}, nil
	}
	q := s.client.Collection(t.Collection).Where(t.Field, "==", t.Value)
	return &queryWatch{it: q.Snapshots(ctx), key: t.Key()}, nil
}

func (s *Store) Close(context.Context) error {
	return s.client.Close()
}

type docWatch struct {
	it *firestore.DocumentSnapshotIterator
}

func (w *docWatch) Next() ([]docstore.Document, error) {
	snap, err := w.it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, docstore.ErrWatchStopped
	}
	if err != nil {
		return nil, classify(err, "firestore watch")
	}
	if !snap.Exists() {
		return []docstore.Document{}, nil
	}
	return []docstore.Document{document{snap: snap}}, nil
}

func (w *docWatch) Stop() { w.it.Stop() }

type queryWatch struct {
	it  *firestore.QuerySnapshotIterator
	key string
}

func (w *queryWatch) Next() ([]docstore.Document, error) {
	qs, err := w.it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, docstore.ErrWatchStopped
	}
	if err != nil {
		return nil, classify(err, "firestore watch "+w.key)
	}
	snaps, err := qs.Documents.GetAll()
	if err != nil {
		return nil, classify(err, "firestore watch "+w.key)
	}
	return wrap(snaps), nil
}

func (w *queryWatch) Stop() { w.it.Stop() }
