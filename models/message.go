package models

import (
	"sort"
	"time"
)

// MessageKind distinguishes user text, attachments and system notices.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindAttachment MessageKind = "attachment"
	KindNotice     MessageKind = "notice"
)

// SystemSender is the sender id used for notices posted on booking transitions.
const SystemSender = "system"

// Message is one entry in a conversation. Exactly one of Body and AttachmentRef is set.
type Message struct {
	ID             string      `firestore:"id" bson:"id" json:"id"`
	ConversationID string      `firestore:"conversationId" bson:"conversationId" json:"conversationId"`
	SenderID       string      `firestore:"senderId" bson:"senderId" json:"senderId"`
	Kind           MessageKind `firestore:"kind" bson:"kind" json:"kind"`
	Body           string      `firestore:"body" bson:"body" json:"body,omitempty"`
	AttachmentRef  string      `firestore:"attachmentRef" bson:"attachmentRef" json:"attachmentRef,omitempty"`
	SentAt         time.Time   `firestore:"sentAt" bson:"sentAt" json:"sentAt"`
}

// Before reports whether m renders before o: by SentAt, then by ID.
func (m Message) Before(o Message) bool {
	if !m.SentAt.Equal(o.SentAt) {
		return m.SentAt.Before(o.SentAt)
	}
	return m.ID < o.ID
}

// SortMessages orders msgs in render order in place.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}
