package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry in a channel's append-only log.
type Message struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ChannelID       uuid.UUID  `db:"channel_id" json:"channel_id"`
	UserID          string     `db:"user_id" json:"user_id"`
	AuthorName      string     `db:"author_name" json:"author_name,omitempty"`
	Content         string     `db:"content" json:"content"`
	ParentMessageID *uuid.UUID `db:"parent_message_id" json:"parent_message_id,omitempty"`
	IsEdited        bool       `db:"is_edited" json:"is_edited"`
	IsDeleted       bool       `db:"is_deleted" json:"is_deleted"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// IsReply reports whether the message belongs to a thread.
func (m Message) IsReply() bool {
	return m.ParentMessageID != nil
}

// Before orders messages by (created_at, id).
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID.String() < other.ID.String()
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// MessageView is a message enriched for display.
type MessageView struct {
	Message
	Reactions  []ReactionSummary `json:"reactions"`
	ReplyCount int               `json:"reply_count"`
}

// NewMessageView wraps a message with empty aggregates.
func NewMessageView(m Message) MessageView {
	return MessageView{Message: m, Reactions: []ReactionSummary{}}
}
