package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventKind discriminates broadcast envelopes.
type EventKind string

const (
	EventNewMessage     EventKind = "new_message"
	EventTyping         EventKind = "typing"
	EventMessageDeleted EventKind = "message_deleted"
)

// Envelope is the wire format of every broadcast on a channel topic.
type Envelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TypingPayload is carried by typing envelopes.
type TypingPayload struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// DeletedPayload is carried by message_deleted envelopes.
type DeletedPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}
