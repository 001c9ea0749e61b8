// Package threads computes reply counts for thread roots.
package threads

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"channel-service/internal/models"
)

// ErrNestedReply is returned when a reply targets another reply.
var ErrNestedReply = errors.New("replies cannot have replies")

// ReplyCounter counts non-deleted direct replies per parent id.
type ReplyCounter interface {
	CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Index derives reply counts from the message log on every call.
type Index struct {
	counter ReplyCounter
}

// NewIndex builds an Index.
func NewIndex(counter ReplyCounter) *Index {
	return &Index{counter: counter}
}

// ReplyCounts maps every requested parent id to its reply count, zero included.
func (i *Index) ReplyCounts(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	counts, err := i.counter.CountReplies(ctx, parentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "count replies")
	}
	for _, id := range parentIDs {
		out[id] = counts[id]
	}
	return out, nil
}

// Roots returns the ids of messages that can carry a thread.
func Roots(msgs []models.Message) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsReply() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// ValidateParent checks that parent can accept a reply posted in channelID.
func ValidateParent(parent models.Message, channelID uuid.UUID) error {
	if parent.ChannelID != channelID {
		return errors.New("parent message belongs to another channel")
	}
	if parent.IsDeleted {
		return errors.New("parent message was deleted")
	}
	if parent.IsReply() {
		return ErrNestedReply
	}
	return nil
}
