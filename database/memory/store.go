// Package memstore is an in-process docstore.Store. It is used by the test
// suites and for local development with STORE_BACKEND=memory.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"marketlink/database/docstore"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpGet       Op = "get"
	OpPut       Op = "put"
	OpCreate    Op = "create"
	OpQuery     Op = "query"
	OpSubscribe Op = "subscribe"
)

// FaultHook is consulted before every operation; a non-nil error aborts it.
type FaultHook func(op Op, collection, id string) error

// Store keeps documents as JSON so reads never alias caller memory.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
	watches     map[*watch]struct{}
	hook        FaultHook
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
		watches:     make(map[*watch]struct{}),
	}
}

// SetFaultHook installs (or with nil, removes) a fault hook.
func (s *Store) SetFaultHook(h FaultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// BreakWatches terminates every open watch with err, as a dropped listener would.
func (s *Store) BreakWatches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watches {
		w.fail(err)
		delete(s.watches, w)
	}
}

// WatchCount reports the number of live watches.
func (s *Store) WatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

type document struct {
	id   string
	data []byte
}

func (d document) ID() string { return d.id }

func (d document) DataTo(v any) error {
	return json.Unmarshal(d.data, v)
}

func (s *Store) fault(op Op, collection, id string) error {
	if s.hook == nil {
		return nil
	}
	return s.hook(op, collection, id)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpGet, collection, id); err != nil {
		return nil, err
	}
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return document{id: id, data: data}, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc any, pre *docstore.Precondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpPut, collection, id); err != nil {
		return err
	}
	prev, exists := s.collections[collection][id]
	if pre != nil {
		if !exists {
			return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		fields, err := decodeFields(prev)
		if err != nil {
			return err
		}
		if !pre.Matches(fields[pre.Field]) {
			return fmt.Errorf("%s/%s %s: %w", collection, id, pre.Field, docstore.ErrPreconditionFailed)
		}
	}
	s.write(collection, id, prev, data)
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memstore: encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCreate, collection, id); err != nil {
		return err
	}
	if _, exists := s.collections[collection][id]; exists {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
	}
	s.write(collection, id, nil, data)
	return nil
}

// write stores data and notifies affected watches. Caller holds s.mu.
func (s *Store) write(collection, id string, prev, data []byte) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string][]byte)
		s.collections[collection] = coll
	}
	coll[id] = data

	for w := range s.watches {
		t := w.target
		if t.Collection != collection {
			continue
		}
		if t.IsDoc() {
			if t.DocID == id {
				w.push([]docstore.Document{document{id: id, data: data}})
			}
			continue
		}
		if matches(prev, t) || matches(data, t) {
			w.push(s.query(t))
		}
	}
}

func (s *Store) Query(ctx context.Context, target docstore.Target) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpQuery, target.Collection, target.DocID); err != nil {
		return nil, err
	}
	return s.resolve(target), nil
}

func (s *Store) resolve(t docstore.Target) []docstore.Document {
	if t.IsDoc() {
		data, ok := s.collections[t.Collection][t.DocID]
		if !ok {
			return []docstore.Document{}
		}
		return []docstore.Document{document{id: t.DocID, data: data}}
	}
	return s.query(t)
}

// query evaluates a field-equality target. Caller holds s.mu.
func (s *Store) query(t docstore.Target) []docstore.Document {
	out := []docstore.Document{}
	for id, data := range s.collections[t.Collection] {
		if matches(data, t) {
			out = append(out, document{id: id, data: data})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func matches(data []byte, t docstore.Target) bool {
	if data == nil {
		return false
	}
	fields, err := decodeFields(data)
	if err != nil {
		return false
	}
	v, ok := fields[t.Field]
	return ok && fmt.Sprint(v) == t.Value
}

func decodeFields(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("memstore: decode: %w", err)
	}
	return fields, nil
}

func (s *Store) Subscribe(ctx context.Context, target docstore.Target) (docstore.Watch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpSubscribe, target.Collection, target.DocID); err != nil {
		return nil, err
	}
	w := &watch{
		store:  s,
		target: target,
		ctx:    ctx,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	w.push(s.resolve(target))
	s.watches[w] = struct{}{}
	return w, nil
}

func (s *Store) Close(context.Context) error {
	s.BreakWatches(docstore.ErrWatchStopped)
	return nil
}

type watch struct {
	store  *Store
	target docstore.Target
	ctx    context.Context

	mu      sync.Mutex
	queue   [][]docstore.Document
	err     error
	notify  chan struct{}
	stop    chan struct{}
	stopped sync.Once
}

func (w *watch) push(docs []docstore.Document) {
	w.mu.Lock()
	w.queue = append(w.queue, docs)
	w.mu.Unlock()
	w.signal()
}

func (w *watch) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	w.signal()
}

func (w *watch) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watch) Next() ([]docstore.Document, error) {
	for {
		select {
		case <-w.stop:
			return nil, docstore.ErrWatchStopped
		default:
		}

		w.mu.Lock()
		if len(w.queue) > 0 {
			docs := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return docs, nil
		}
		if w.err != nil {
			err := w.err
			w.mu.Unlock()
			return nil, err
		}
		w.mu.Unlock()

		select {
		case <-w.notify:
		case <-w.stop:
			return nil, docstore.ErrWatchStopped
		case <-w.ctx.Done():
			return nil, w.ctx.Err()
		}
	}
}

func (w *watch) Stop() {
	w.stopped.Do(func() {
		close(w.stop)
		w.store.mu.Lock()
		delete(w.store.watches, w)
		w.store.mu.Unlock()
	})
}
