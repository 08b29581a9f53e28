// Package repository holds the helpers shared by the typed repositories that sit
// on top of a docstore.Store.
package repository

import (
	"fmt"

	"marketlink/database/docstore"
)

// Decode decodes one document into a T.
func Decode[T any](doc docstore.Document) (T, error) {
	var v T
	if err := doc.DataTo(&v); err != nil {
		return v, fmt.Errorf("error decoding document %s: %w", doc.ID(), err)
	}
	return v, nil
}

// DecodeAll decodes every document, preserving order.
func DecodeAll[T any](docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Watch adapts a docstore.Watch into a typed stream; convert turns each raw
// result set into the delivered value. It satisfies live.Source.
type Watch[T any] struct {
	w       docstore.Watch
	convert func([]docstore.Document) (T, bool, error)
}

// NewWatch wraps w. When convert returns ok=false the result set is skipped.
func NewWatch[T any](w docstore.Watch, convert func([]docstore.Document) (T, bool, error)) *Watch[T] {
	return &Watch[T]{w: w, convert: convert}
}

func (w *Watch[T]) Next() (T, error) {
	for {
		docs, err := w.w.Next()
		if err != nil {
			var zero T
			return zero, err
		}
		v, ok, err := w.convert(docs)
		if err != nil {
			return v, err
		}
		if ok {
			return v, nil
		}
	}
}

func (w *Watch[T]) Stop() { w.w.Stop() }
