package threads

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/models"
)

type countFunc func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)

func (f countFunc) CountReplies(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return f(ctx, ids)
}

func TestReplyCountsDefaultsToZero(t *testing.T) {
	withReplies, without := uuid.New(), uuid.New()
	index := NewIndex(countFunc(func(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
		require.ElementsMatch(t, []uuid.UUID{withReplies, without}, ids)
		return map[uuid.UUID]int{withReplies: 3}, nil
	}))

	counts, err := index.ReplyCounts(context.Background(), []uuid.UUID{withReplies, without})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{withReplies: 3, without: 0}, counts)
}

func TestReplyCountsSkipsStoreForEmptyInput(t *testing.T) {
	index := NewIndex(countFunc(func(context.Context, []uuid.UUID) (map[uuid.UUID]int, error) {
		t.Fatal("store should not be queried")
		return nil, nil
	}))

	counts, err := index.ReplyCounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestRootsSkipsReplies(t *testing.T) {
	root := models.Message{ID: uuid.New()}
	reply := models.Message{ID: uuid.New(), ParentMessageID: &root.ID}

	assert.Equal(t, []uuid.UUID{root.ID}, Roots([]models.Message{root, reply}))
}

func TestValidateParent(t *testing.T) {
	channelID := uuid.New()
	root := models.Message{ID: uuid.New(), ChannelID: channelID}
	require.NoError(t, ValidateParent(root, channelID))

	reply := models.Message{ID: uuid.New(), ChannelID: channelID, ParentMessageID: &root.ID}
	assert.ErrorIs(t, ValidateParent(reply, channelID), ErrNestedReply)

	assert.Error(t, ValidateParent(root, uuid.New()))

	deleted := root
	deleted.IsDeleted = true
	assert.Error(t, ValidateParent(deleted, channelID))
}
