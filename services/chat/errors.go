package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage        = errors.New("message body is empty")
	ErrNotParticipant      = errors.New("sender is not a participant of this conversation")
	ErrInvalidConversation = errors.New("invalid conversation id")
)

// UploadError means the attachment never reached storage and no message was written.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
