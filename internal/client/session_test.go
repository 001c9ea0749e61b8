package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/broadcast"
	"channel-service/internal/chat"
	"channel-service/internal/models"
	"channel-service/internal/pubsub"
)

type fakeAPI struct {
	mu      sync.Mutex
	pages   map[string]chat.PageView
	sendErr error
	// echo publishes the created message before SendMessage returns
	echo   *broadcast.Coordinator
	typing int32
	loads  []string
}

func (f *fakeAPI) LoadPage(_ context.Context, _ uuid.UUID, cursor string) (chat.PageView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, cursor)
	page, ok := f.pages[cursor]
	if !ok {
		return chat.PageView{}, errors.New("no such page")
	}
	return page, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, channelID uuid.UUID, content string, parentID *uuid.UUID) (models.MessageView, error) {
	if f.sendErr != nil {
		return models.MessageView{}, f.sendErr
	}
	msg := models.NewMessageView(models.Message{
		ID:              uuid.New(),
		ChannelID:       channelID,
		UserID:          "me",
		Content:         content,
		ParentMessageID: parentID,
		CreatedAt:       time.Now(),
	})
	if f.echo != nil {
		f.echo.PublishMessage(ctx, msg)
	}
	return msg, nil
}

func (f *fakeAPI) NotifyTyping(context.Context, uuid.UUID) error {
	atomic.AddInt32(&f.typing, 1)
	return nil
}

func viewMsg(channelID uuid.UUID, content string, at time.Time) models.MessageView {
	return models.NewMessageView(models.Message{ID: uuid.New(), ChannelID: channelID, UserID: "u2", Content: content, CreatedAt: at})
}

func strPtr(s string) *string { return &s }

func contents(entries []broadcast.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message.Content
	}
	return out
}

var me = models.User{ID: "me", FirstName: "me", Status: models.StatusActive}

func newSession(t *testing.T, api *fakeAPI, mem *pubsub.Memory) *Session {
	t.Helper()
	s := NewSession(api, mem, me, Options{TypingInterval: time.Hour, TypingTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenLoadsFirstPageAndFollowsBroadcasts(t *testing.T) {
	channelID := uuid.New()
	base := time.Now().Add(-time.Hour)
	api := &fakeAPI{pages: map[string]chat.PageView{
		"": {Messages: []models.MessageView{viewMsg(channelID, "a", base), viewMsg(channelID, "b", base.Add(time.Second))}},
	}}
	mem := pubsub.NewMemory()
	s := newSession(t, api, mem)

	require.NoError(t, s.Open(context.Background(), channelID))
	assert.Equal(t, channelID, s.ChannelID())
	assert.Equal(t, []string{"a", "b"}, contents(s.Entries()))

	coord := broadcast.NewCoordinator(mem)
	live := viewMsg(channelID, "c", time.Now())
	coord.PublishMessage(context.Background(), live)
	coord.PublishMessage(context.Background(), live)
	assert.Equal(t, []string{"a", "b", "c"}, contents(s.Entries()))

	coord.PublishDeletion(context.Background(), channelID, live.ID)
	assert.Equal(t, []string{"a", "b"}, contents(s.Entries()))
}

func TestOpenFailureReleasesSubscription(t *testing.T) {
	mem := pubsub.NewMemory()
	s := newSession(t, &fakeAPI{pages: map[string]chat.PageView{}}, mem)
	channelID := uuid.New()

	require.Error(t, s.Open(context.Background(), channelID))
	assert.Equal(t, 0, mem.Subscribers(broadcast.Topic(channelID)))
	assert.Nil(t, s.Entries())
}

func TestSendConfirmsOptimisticEntry(t *testing.T) {
	channelID := uuid.New()
	api := &fakeAPI{pages: map[string]chat.PageView{"": {}}}
	s := newSession(t, api, pubsub.NewMemory())
	require.NoError(t, s.Open(context.Background(), channelID))

	msg, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, broadcast.StateConfirmed, entries[0].State)
	assert.Equal(t, msg.ID, entries[0].Message.ID)
}

func TestSendCollapsesWhenEchoArrivesFirst(t *testing.T) {
	channelID := uuid.New()
	mem := pubsub.NewMemory()
	api := &fakeAPI{pages: map[string]chat.PageView{"": {}}, echo: broadcast.NewCoordinator(mem)}
	s := newSession(t, api, mem)
	require.NoError(t, s.Open(context.Background(), channelID))

	msg, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, msg.ID, entries[0].Message.ID)
	assert.Equal(t, broadcast.StateConfirmed, entries[0].State)
}

func TestSendFailureKeepsFailedEntry(t *testing.T) {
	channelID := uuid.New()
	api := &fakeAPI{pages: map[string]chat.PageView{"": {}}, sendErr: errors.New("offline")}
	s := newSession(t, api, pubsub.NewMemory())
	require.NoError(t, s.Open(context.Background(), channelID))

	_, err := s.Send(context.Background(), "hello", nil)
	require.Error(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, broadcast.StateFailed, entries[0].State)
	assert.Equal(t, "hello", entries[0].Message.Content)

	assert.True(t, s.Discard(entries[0].LocalID))
	assert.Empty(t, s.Entries())
}

func TestSendWithoutChannel(t *testing.T) {
	s := newSession(t, &fakeAPI{}, pubsub.NewMemory())
	_, err := s.Send(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestLoadOlderPrependsAndStops(t *testing.T) {
	channelID := uuid.New()
	base := time.Now().Add(-time.Hour)
	older := viewMsg(channelID, "old", base)
	newer := viewMsg(channelID, "new", base.Add(time.Minute))
	api := &fakeAPI{pages: map[string]chat.PageView{
		"":   {Messages: []models.MessageView{newer}, HasMore: true, NextCursor: strPtr("c1")},
		"c1": {Messages: []models.MessageView{older, newer}},
	}}
	s := newSession(t, api, pubsub.NewMemory())
	require.NoError(t, s.Open(context.Background(), channelID))

	added, more, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.False(t, more)
	assert.Equal(t, []string{"old", "new"}, contents(s.Entries()))

	added, more, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.False(t, more)
	assert.Equal(t, []string{"", "c1"}, api.loads)
}

func TestTypingNamesAndEmitter(t *testing.T) {
	channelID := uuid.New()
	mem := pubsub.NewMemory()
	api := &fakeAPI{pages: map[string]chat.PageView{"": {}}}
	var changes int32
	s := NewSession(api, mem, me, Options{
		TypingInterval: time.Hour,
		TypingTimeout:  50 * time.Millisecond,
		OnChange:       func() { atomic.AddInt32(&changes, 1) },
	})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Open(context.Background(), channelID))

	coord := broadcast.NewCoordinator(mem)
	coord.PublishTyping(context.Background(), channelID, models.TypingPayload{UserID: "u2", DisplayName: "bob"})
	coord.PublishTyping(context.Background(), channelID, models.TypingPayload{UserID: "me", DisplayName: "me"})
	assert.Equal(t, []string{"bob"}, s.TypingNames())

	assert.Eventually(t, func() bool { return len(s.TypingNames()) == 0 }, time.Second, 5*time.Millisecond)

	assert.True(t, s.Typing(context.Background()))
	assert.False(t, s.Typing(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&api.typing) == 1 }, time.Second, 5*time.Millisecond)
	assert.Positive(t, atomic.LoadInt32(&changes))
}

func TestCloseDropsState(t *testing.T) {
	channelID := uuid.New()
	mem := pubsub.NewMemory()
	s := newSession(t, &fakeAPI{pages: map[string]chat.PageView{"": {}}}, mem)
	require.NoError(t, s.Open(context.Background(), channelID))
	require.Equal(t, 1, mem.Subscribers(broadcast.Topic(channelID)))

	require.NoError(t, s.Close())
	assert.Equal(t, 0, mem.Subscribers(broadcast.Topic(channelID)))
	assert.Equal(t, uuid.Nil, s.ChannelID())
	assert.Nil(t, s.Entries())
	assert.False(t, s.Typing(context.Background()))
}
