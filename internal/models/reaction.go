package models

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is a single (message, user, emoji) row.
type Reaction struct {
	MessageID uuid.UUID `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionSummary aggregates one emoji on one message for a viewer.
type ReactionSummary struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	UserReacted bool   `json:"user_reacted"`
}
