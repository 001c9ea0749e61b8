package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// Boundary is a position in a channel's (created_at, id) order.
type Boundary struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// MessageRepository defines interactions with the message log.
type MessageRepository interface {
	CreateMessage(ctx context.Context, channelID uuid.UUID, userID string, content string, parentID *uuid.UUID) (models.Message, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error)
	ListBefore(ctx context.Context, channelID uuid.UUID, before *Boundary, limit int) ([]models.Message, error)
	SoftDelete(ctx context.Context, messageID uuid.UUID) error
	CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageSelect = `SELECT m.id, m.channel_id, m.user_id, m.content, m.parent_message_id, m.is_edited, m.is_deleted, m.created_at,
        COALESCE(NULLIF(u.username, ''), TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')), '') AS author_name
        FROM messages m LEFT JOIN users u ON u.id = m.user_id`

// CreateMessage appends a message to a channel.
func (r *MessageRepo) CreateMessage(ctx context.Context, channelID uuid.UUID, userID string, content string, parentID *uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `WITH inserted AS (
            INSERT INTO messages (channel_id, user_id, content, parent_message_id) VALUES ($1, $2, $3, $4)
            RETURNING id, channel_id, user_id, content, parent_message_id, is_edited, is_deleted, created_at
        )
        SELECT m.*, COALESCE(NULLIF(u.username, ''), TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')), '') AS author_name
        FROM inserted m LEFT JOIN users u ON u.id = m.user_id`, channelID, userID, content, parentID)
	return msg, err
}

// GetMessage retrieves a single message, deleted or not.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, messageSelect+` WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListBefore returns up to limit non-deleted messages strictly older than before,
// newest first. A nil boundary starts from the newest message.
func (r *MessageRepo) ListBefore(ctx context.Context, channelID uuid.UUID, before *Boundary, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if before == nil {
		err := r.db.SelectContext(ctx, &msgs, messageSelect+`
            WHERE m.channel_id=$1 AND m.is_deleted = FALSE
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT $2`, channelID, limit)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs, messageSelect+`
        WHERE m.channel_id=$1 AND m.is_deleted = FALSE AND (m.created_at, m.id) < ($2, $3)
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $4`, channelID, before.CreatedAt, before.ID, limit)
	return msgs, err
}

// SoftDelete flags a message deleted; the row stays for audit.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = TRUE, updated_at = NOW() WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountReplies counts non-deleted direct replies per parent.
func (r *MessageRepo) CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT parent_message_id, COUNT(*) AS replies FROM messages
        WHERE parent_message_id IN (?) AND is_deleted = FALSE
        GROUP BY parent_message_id`, parentIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ParentID uuid.UUID `db:"parent_message_id"`
		Replies  int       `db:"replies"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Replies
	}
	return counts, nil
}
