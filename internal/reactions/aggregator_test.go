package reactions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/models"
)

type triple struct {
	message uuid.UUID
	user    string
	emoji   string
}

// memoryStore enforces the triple uniqueness the database provides.
type memoryStore struct {
	mu   sync.Mutex
	rows []models.Reaction
	now  time.Time
}

func (s *memoryStore) find(t triple) int {
	for i, r := range s.rows {
		if r.MessageID == t.message && r.UserID == t.user && r.Emoji == t.emoji {
			return i
		}
	}
	return -1
}

func (s *memoryStore) DeleteReaction(_ context.Context, messageID uuid.UUID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(triple{messageID, userID, emoji})
	if i < 0 {
		return false, nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return true, nil
}

func (s *memoryStore) InsertReaction(_ context.Context, messageID uuid.UUID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(triple{messageID, userID, emoji}) >= 0 {
		return false, nil
	}
	s.now = s.now.Add(time.Millisecond)
	s.rows = append(s.rows, models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: s.now})
	return true, nil
}

func (s *memoryStore) ListReactions(_ context.Context, messageIDs []uuid.UUID) ([]models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range messageIDs {
		want[id] = true
	}
	var out []models.Reaction
	for _, r := range s.rows {
		if want[r.MessageID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestToggleScenario(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memoryStore{})
	m := uuid.New()

	action, err := agg.Toggle(ctx, m, "A", "🙏")
	require.NoError(t, err)
	require.Equal(t, Added, action)

	forA, err := agg.Summarize(ctx, []uuid.UUID{m}, "A")
	require.NoError(t, err)
	require.Equal(t, []models.ReactionSummary{{Emoji: "🙏", Count: 1, UserReacted: true}}, forA[m])

	action, err = agg.Toggle(ctx, m, "B", "🙏")
	require.NoError(t, err)
	require.Equal(t, Added, action)

	forA, _ = agg.Summarize(ctx, []uuid.UUID{m}, "A")
	forB, _ := agg.Summarize(ctx, []uuid.UUID{m}, "B")
	assert.Equal(t, []models.ReactionSummary{{Emoji: "🙏", Count: 2, UserReacted: true}}, forA[m])
	assert.Equal(t, []models.ReactionSummary{{Emoji: "🙏", Count: 2, UserReacted: true}}, forB[m])

	action, err = agg.Toggle(ctx, m, "A", "🙏")
	require.NoError(t, err)
	require.Equal(t, Removed, action)

	forA, _ = agg.Summarize(ctx, []uuid.UUID{m}, "A")
	forB, _ = agg.Summarize(ctx, []uuid.UUID{m}, "B")
	assert.Equal(t, []models.ReactionSummary{{Emoji: "🙏", Count: 1, UserReacted: false}}, forA[m])
	assert.Equal(t, []models.ReactionSummary{{Emoji: "🙏", Count: 1, UserReacted: true}}, forB[m])
}

func TestToggleIsInvolution(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	agg := NewAggregator(store)
	m := uuid.New()
	_, err := agg.Toggle(ctx, m, "B", "👍")
	require.NoError(t, err)

	before, _ := agg.Summarize(ctx, []uuid.UUID{m}, "A")

	first, err := agg.Toggle(ctx, m, "A", "👍")
	require.NoError(t, err)
	second, err := agg.Toggle(ctx, m, "A", "👍")
	require.NoError(t, err)

	assert.Equal(t, Added, first)
	assert.Equal(t, Removed, second)
	after, _ := agg.Summarize(ctx, []uuid.UUID{m}, "A")
	assert.Equal(t, before, after)
}

func TestSummarizeFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memoryStore{})
	m1, m2 := uuid.New(), uuid.New()

	for _, step := range []triple{
		{m1, "A", "🔥"}, {m1, "B", "🙏"}, {m1, "C", "🔥"}, {m1, "A", "🎉"}, {m2, "A", "👍"},
	} {
		_, err := agg.Toggle(ctx, step.message, step.user, step.emoji)
		require.NoError(t, err)
	}

	out, err := agg.Summarize(ctx, []uuid.UUID{m1, m2, uuid.Nil}, "C")
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionSummary{
		{Emoji: "🔥", Count: 2, UserReacted: true},
		{Emoji: "🙏", Count: 1},
		{Emoji: "🎉", Count: 1},
	}, out[m1])
	assert.Equal(t, []models.ReactionSummary{{Emoji: "👍", Count: 1}}, out[m2])
	assert.Equal(t, []models.ReactionSummary{}, out[uuid.Nil])
}

func TestToggleConcurrentSameTriple(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	agg := NewAggregator(store)
	m := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Toggle(ctx, m, "A", "🙏")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	out, err := agg.Summarize(ctx, []uuid.UUID{m}, "A")
	require.NoError(t, err)
	for _, s := range out[m] {
		assert.LessOrEqual(t, s.Count, 1, "triple stored more than once")
	}
}

func TestValidateReaction(t *testing.T) {
	for _, ok := range []string{"🙏", "👍", "🔥", "💪", "📖", "❤️", "❤", "✌️", "☺️"} {
		assert.NoError(t, ValidateReaction(ok), ok)
	}
	for _, bad := range []string{"", "a", "🙏🙏", "🙏 ", "ok👍", "\uFE0F", "❤️❤️"} {
		assert.ErrorIs(t, ValidateReaction(bad), ErrInvalidReaction, bad)
	}
}

func TestToggleStoresReactionAsSent(t *testing.T) {
	store := &memoryStore{}
	action, err := NewAggregator(store).Toggle(context.Background(), uuid.New(), "A", "❤️")
	require.NoError(t, err)
	assert.Equal(t, Added, action)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "❤️", store.rows[0].Emoji)
}

func TestToggleRejectsInvalidEmoji(t *testing.T) {
	store := &memoryStore{}
	_, err := NewAggregator(store).Toggle(context.Background(), uuid.New(), "A", "nope")
	require.ErrorIs(t, err, ErrInvalidReaction)
	assert.Empty(t, store.rows)
}
