package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

// ReactionRepository persists reaction rows. The (message, user, emoji)
// uniqueness constraint is the serialization point for toggles.
type ReactionRepository interface {
	DeleteReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error)
	InsertReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []uuid.UUID) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// DeleteReaction removes the triple and reports whether a row was removed.
func (r *ReactionRepo) DeleteReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

// InsertReaction inserts the triple and reports whether this call created it.
func (r *ReactionRepo) InsertReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

// ListReactions returns the reactions on the given messages in insertion order.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageIDs []uuid.UUID) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT message_id, user_id, emoji, created_at FROM reactions
        WHERE message_id IN (?) ORDER BY created_at ASC, user_id ASC`, messageIDs)
	if err != nil {
		return nil, err
	}
	var reactions []models.Reaction
	err = r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...)
	return reactions, err
}
