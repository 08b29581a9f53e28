// Package docstore defines the contract the booking and conversation layers
// expect from a remote document database.
//
// A Store offers point reads and writes by document id, equality queries on a
// single field, and a subscription primitive that delivers the current result
// set on subscribe and again after every change until stopped. Stores are
// last-write-wins unless a Precondition is supplied to Put.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrAlreadyExists      = errors.New("document already exists")
	ErrPreconditionFailed = errors.New("document precondition failed")
	ErrWatchStopped       = errors.New("watch stopped")
)

// Document is a decoded-on-demand view of a stored document.
type Document interface {
	ID() string
	DataTo(v any) error
}

// Target names either a single document or a field-equality query.
type Target struct {
	Collection string
	DocID      string
	Field      string
	Value      string
}

// Doc targets one document by id.
func Doc(collection, id string) Target {
	return Target{Collection: collection, DocID: id}
}

// Where targets every document in collection whose field equals value.
func Where(collection, field, value string) Target {
	return Target{Collection: collection, Field: field, Value: value}
}

func (t Target) IsDoc() bool { return t.DocID != "" }

// Key is a stable string identifying the target, used to share subscriptions.
func (t Target) Key() string {
	if t.IsDoc() {
		return fmt.Sprintf("%s/%s", t.Collection, t.DocID)
	}
	return fmt.Sprintf("%s?%s=%s", t.Collection, t.Field, t.Value)
}

// Precondition guards a Put: the stored document must exist and Field must equal Equals.
type Precondition struct {
	Field  string
	Equals any
}

func IfFieldEquals(field string, v any) *Precondition {
	return &Precondition{Field: field, Equals: v}
}

// Matches compares a stored field value against the expected one. Numeric values
// are compared by value so that int64, int32 and float64 encodings agree.
func (p *Precondition) Matches(stored any) bool {
	if a, ok := toFloat(stored); ok {
		if b, ok := toFloat(p.Equals); ok {
			return a == b
		}
	}
	return reflect.DeepEqual(stored, p.Equals)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// Store is the remote document database.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put fully replaces (or inserts) the document. With a non-nil precondition the
	// document must already exist and satisfy it, otherwise ErrPreconditionFailed
	// (or ErrNotFound) is returned and nothing is written.
	Put(ctx context.Context, collection, id string, doc any, pre *Precondition) error
	// Create writes a new document and fails with ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, collection, id string, doc any) error
	Query(ctx context.Context, target Target) ([]Document, error)
	// Subscribe opens a live view of target. The first Next returns the current
	// result; each later Next returns the result after a change.
	Subscribe(ctx context.Context, target Target) (Watch, error)
	Close(ctx context.Context) error
}

// Watch is a live result iterator. For a document target a missing document is
// reported as an empty slice, not an error.
type Watch interface {
	Next() ([]Document, error)
	Stop()
}

// Permanent reports whether err will not go away by retrying the same request.
func Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, context.Canceled)
}
