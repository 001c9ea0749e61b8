// Package reactions toggles per-user emoji reactions and summarizes them per message.
package reactions

import (
	"context"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"channel-service/internal/models"
)

// ErrInvalidReaction is returned when the reaction is not exactly one emoji.
var ErrInvalidReaction = errors.New("the reaction is not valid, it must be a single emoji")

// maxEmojiBytes bounds the stored token; the longest ZWJ family sequences fit.
const maxEmojiBytes = 64

// Action is the state a toggle left the triple in.
type Action string

const (
	Added   Action = "added"
	Removed Action = "removed"
)

// Store is the persistence the aggregator needs.
type Store interface {
	DeleteReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error)
	InsertReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []uuid.UUID) ([]models.Reaction, error)
}

// Aggregator toggles reactions and recomputes summaries from the store on every call.
type Aggregator struct {
	store Store
}

// NewAggregator builds an Aggregator.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// ValidateReaction checks that the reaction contains exactly one emoji and nothing else.
func ValidateReaction(reaction string) error {
	if reaction == "" || len(reaction) > maxEmojiBytes {
		return ErrInvalidReaction
	}
	if singleEmoji(reaction) || singleEmoji(stripVariation(reaction)) {
		return nil
	}
	return ErrInvalidReaction
}

// variationSelector16 requests emoji presentation; the emoji table lists
// some characters (❤, ✌, ☺) without it.
const variationSelector16 = "\uFE0F"

func stripVariation(s string) string {
	return strings.ReplaceAll(s, variationSelector16, "")
}

func singleEmoji(s string) bool {
	if s == "" {
		return false
	}
	found := gomoji.CollectAll(s)
	return len(found) == 1 && stripVariation(found[0].Character) == stripVariation(s)
}

// Toggle removes the triple when present and inserts it otherwise. When a
// concurrent toggle wins the insert, the caller gets the state it produced.
func (a *Aggregator) Toggle(ctx context.Context, messageID uuid.UUID, userID, emoji string) (Action, error) {
	if err := ValidateReaction(emoji); err != nil {
		return "", err
	}

	removed, err := a.store.DeleteReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return "", errors.Wrap(err, "delete reaction")
	}
	if removed {
		return Removed, nil
	}

	if _, err := a.store.InsertReaction(ctx, messageID, userID, emoji); err != nil {
		return "", errors.Wrap(err, "insert reaction")
	}
	// a lost insert race means the triple exists, which is the added state
	return Added, nil
}

// Summarize aggregates reactions per message for viewerID. Emojis keep the
// order in which they were first seen. Every requested id is present in the
// result, with an empty slice when it has no reactions.
func (a *Aggregator) Summarize(ctx context.Context, messageIDs []uuid.UUID, viewerID string) (map[uuid.UUID][]models.ReactionSummary, error) {
	out := make(map[uuid.UUID][]models.ReactionSummary, len(messageIDs))
	for _, id := range messageIDs {
		out[id] = []models.ReactionSummary{}
	}
	if len(messageIDs) == 0 {
		return out, nil
	}

	rows, err := a.store.ListReactions(ctx, messageIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list reactions")
	}

	index := make(map[uuid.UUID]map[string]int, len(messageIDs))
	for _, r := range rows {
		summaries, ok := out[r.MessageID]
		if !ok {
			continue
		}
		positions := index[r.MessageID]
		if positions == nil {
			positions = map[string]int{}
			index[r.MessageID] = positions
		}
		pos, seen := positions[r.Emoji]
		if !seen {
			pos = len(summaries)
			positions[r.Emoji] = pos
			summaries = append(summaries, models.ReactionSummary{Emoji: r.Emoji})
		}
		summaries[pos].Count++
		if r.UserID == viewerID {
			summaries[pos].UserReacted = true
		}
		out[r.MessageID] = summaries
	}
	return out, nil
}
