// Package storage uploads chat attachments to durable asset storage.
package storage

import (
	"context"
	"io"
)

// Asset is an attachment waiting to be uploaded.
type Asset struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Uploader durably stores an asset and returns an opaque reference to it. A
// returned reference always points at a completed upload.
type Uploader interface {
	Upload(ctx context.Context, a Asset) (string, error)
}
