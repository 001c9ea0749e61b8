package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType controls how access to a channel is resolved.
type ChannelType string

const (
	ChannelCommunity   ChannelType = "community"
	ChannelLeadersOnly ChannelType = "leaders"
	ChannelGroup       ChannelType = "group"
	ChannelDirect      ChannelType = "direct"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelCommunity, ChannelLeadersOnly, ChannelGroup, ChannelDirect:
		return true
	}
	return false
}

// RequiresMembership reports whether access is decided by explicit membership rows.
func (t ChannelType) RequiresMembership() bool {
	return t == ChannelGroup || t == ChannelDirect
}

// Channel is a named scope in which messages are ordered.
type Channel struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Type        ChannelType `db:"type" json:"type"`
	Description string      `db:"description" json:"description"`
	GroupID     *uuid.UUID  `db:"group_id" json:"group_id,omitempty"`
	IsArchived  bool        `db:"is_archived" json:"is_archived"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

