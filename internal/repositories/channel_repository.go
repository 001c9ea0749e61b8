package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository abstracts channel and membership persistence.
type ChannelRepository interface {
	GetChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error)
	ListActiveChannels(ctx context.Context) ([]models.Channel, error)
	ListMemberChannelIDs(ctx context.Context, userID string) ([]uuid.UUID, error)
	IsMember(ctx context.Context, channelID uuid.UUID, userID string) (bool, error)
	CreateChannel(ctx context.Context, channel models.Channel, memberIDs []string) (models.Channel, error)
	FindOrCreateDirect(ctx context.Context, userID, targetID, name string) (models.Channel, bool, error)
	ArchiveChannel(ctx context.Context, channelID uuid.UUID) error
	MarkRead(ctx context.Context, channelID uuid.UUID, userID string, at time.Time) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, name, type, description, group_id, is_archived, created_by, created_at`

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListActiveChannels returns every non-archived channel, newest first.
func (r *ChannelRepo) ListActiveChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels WHERE is_archived = FALSE ORDER BY created_at DESC`)
	return channels, err
}

// ListMemberChannelIDs returns the channels with an explicit membership row for the user.
func (r *ChannelRepo) ListMemberChannelIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `SELECT channel_id FROM channel_members WHERE user_id=$1`, userID)
	return ids, err
}

// IsMember checks membership.
func (r *ChannelRepo) IsMember(ctx context.Context, channelID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channelID, userID)
	return exists, err
}

// CreateChannel creates a channel and its members atomically.
func (r *ChannelRepo) CreateChannel(ctx context.Context, channel models.Channel, memberIDs []string) (models.Channel, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var created models.Channel
	if err = tx.GetContext(ctx, &created, `INSERT INTO channels (name, type, description, group_id, created_by)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+channelColumns,
		channel.Name, channel.Type, channel.Description, channel.GroupID, channel.CreatedBy); err != nil {
		return models.Channel{}, err
	}

	if err = insertMembers(ctx, tx, created.ID, memberIDs); err != nil {
		return models.Channel{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return created, nil
}

// FindOrCreateDirect returns the direct channel between two users, creating it on first contact.
// The boolean result reports whether a new channel was created.
func (r *ChannelRepo) FindOrCreateDirect(ctx context.Context, userID, targetID, name string) (models.Channel, bool, error) {
	if userID == targetID {
		return models.Channel{}, false, errors.New("cannot create direct channel with self")
	}
	key := DirectKey(userID, targetID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var channel models.Channel
	err = tx.GetContext(ctx, &channel, `INSERT INTO channels (name, type, direct_key, created_by)
        VALUES ($1, 'direct', $2, $3)
        ON CONFLICT (direct_key) DO NOTHING
        RETURNING `+channelColumns, name, key, userID)
	created := err == nil
	if errors.Is(err, sql.ErrNoRows) {
		// lost the race or already present
		err = tx.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE direct_key=$1`, key)
	}
	if err != nil {
		return models.Channel{}, false, err
	}

	if created {
		if err = insertMembers(ctx, tx, channel.ID, []string{userID, targetID}); err != nil {
			return models.Channel{}, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, false, err
	}
	return channel, created, nil
}

// ArchiveChannel retires a channel without deleting its history.
func (r *ChannelRepo) ArchiveChannel(ctx context.Context, channelID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE channels SET is_archived = TRUE WHERE id=$1`, channelID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// MarkRead moves the member's last-read timestamp forward.
func (r *ChannelRepo) MarkRead(ctx context.Context, channelID uuid.UUID, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channel_members SET last_read_at = GREATEST(COALESCE(last_read_at, $3), $3)
        WHERE channel_id=$1 AND user_id=$2`, channelID, userID, at)
	return err
}

// DirectKey is the order-independent identity of a user pair.
func DirectKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, channelID uuid.UUID, memberIDs []string) error {
	// dedupe and keep a stable insert order
	set := map[string]struct{}{}
	for _, id := range memberIDs {
		set[id] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)
            ON CONFLICT (channel_id, user_id) DO NOTHING`, channelID, id); err != nil {
			return err
		}
	}
	return nil
}
