package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/broadcast"
	"channel-service/internal/models"
	"channel-service/internal/pubsub"
	"channel-service/internal/typing"
)

// ErrNotOpen is returned by operations on a Session with no open channel.
var ErrNotOpen = errors.New("no channel open")

// Options tune a Session. Zero values pick the package defaults.
type Options struct {
	TypingInterval time.Duration
	TypingTimeout  time.Duration
	// OnChange is called after the view or the typing list changed.
	OnChange func()
}

// Session holds the state of the one channel a user has open.
type Session struct {
	api  API
	sub  pubsub.Subscriber
	self models.User
	opts Options

	mu           sync.Mutex
	channelID    uuid.UUID
	view         *broadcast.LocalView
	subscription *broadcast.Subscription
	emitter      *typing.Emitter
	cursor       *string
	hasMore      bool
}

// NewSession builds a closed Session for self.
func NewSession(api API, sub pubsub.Subscriber, self models.User, opts Options) *Session {
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = typing.DefaultTimeout
	}
	return &Session{api: api, sub: sub, self: self, opts: opts}
}

// Open switches the session to channelID. The live subscription is taken
// before the first page loads so no broadcast falls between the two.
func (s *Session) Open(ctx context.Context, channelID uuid.UUID) error {
	if err := s.Close(); err != nil {
		jww.WARN.Printf("closing previous channel: %v", err)
	}

	view := broadcast.NewLocalView()
	subscription, err := broadcast.Subscribe(ctx, s.sub, channelID, s.self.DisplayName(), s.opts.TypingTimeout, broadcast.Handlers{
		OnNewMessage: func(msg models.MessageView) {
			if view.Receive(msg) {
				s.changed()
			}
		},
		OnTyping: func([]string) { s.changed() },
		OnMessageDeleted: func(id uuid.UUID) {
			if view.Remove(id) {
				s.changed()
			}
		},
	})
	if err != nil {
		return err
	}

	page, err := s.api.LoadPage(ctx, channelID, "")
	if err != nil {
		_ = subscription.Unsubscribe()
		return errors.Wrap(err, "load first page")
	}
	// broadcasts that raced the load are already in the view
	view.Prepend(page.Messages)

	s.mu.Lock()
	s.channelID = channelID
	s.view = view
	s.subscription = subscription
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	s.emitter = typing.NewEmitter(s.opts.TypingInterval, func(ctx context.Context) error {
		return s.api.NotifyTyping(ctx, channelID)
	})
	s.mu.Unlock()

	s.changed()
	return nil
}

// Close drops the subscription, the view and the typing state.
func (s *Session) Close() error {
	s.mu.Lock()
	subscription := s.subscription
	s.channelID = uuid.Nil
	s.view = nil
	s.subscription = nil
	s.emitter = nil
	s.cursor = nil
	s.hasMore = false
	s.mu.Unlock()

	if subscription == nil {
		return nil
	}
	return subscription.Unsubscribe()
}

// ChannelID returns the open channel, or uuid.Nil.
func (s *Session) ChannelID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// Send appends an optimistic copy, posts it and reconciles with the
// server's answer. A failed send stays in the view as Failed.
func (s *Session) Send(ctx context.Context, content string, parentID *uuid.UUID) (models.MessageView, error) {
	s.mu.Lock()
	view, channelID := s.view, s.channelID
	s.mu.Unlock()
	if view == nil {
		return models.MessageView{}, ErrNotOpen
	}

	draft := models.NewMessageView(models.Message{
		ChannelID:       channelID,
		UserID:          s.self.ID,
		AuthorName:      s.self.DisplayName(),
		Content:         content,
		ParentMessageID: parentID,
		CreatedAt:       time.Now(),
	})
	localID := view.BeginSend(draft)
	s.changed()

	msg, err := s.api.SendMessage(ctx, channelID, content, parentID)
	if err != nil {
		view.Fail(localID)
		s.changed()
		return models.MessageView{}, errors.Wrap(err, "send message")
	}
	view.Confirm(localID, msg)
	s.changed()
	return msg, nil
}

// Discard removes a failed send from the view.
func (s *Session) Discard(localID uuid.UUID) bool {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view == nil || !view.Discard(localID) {
		return false
	}
	s.changed()
	return true
}

// LoadOlder prepends the next older page. It reports how many messages
// were added and whether more history remains.
func (s *Session) LoadOlder(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	view, channelID, cursor, hasMore := s.view, s.channelID, s.cursor, s.hasMore
	s.mu.Unlock()
	if view == nil {
		return 0, false, ErrNotOpen
	}
	if !hasMore || cursor == nil {
		return 0, false, nil
	}

	page, err := s.api.LoadPage(ctx, channelID, *cursor)
	if err != nil {
		return 0, hasMore, errors.Wrap(err, "load older page")
	}

	s.mu.Lock()
	if s.view != view {
		// channel switched while loading
		s.mu.Unlock()
		return 0, false, nil
	}
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	s.mu.Unlock()

	added := view.Prepend(page.Messages)
	if added > 0 {
		s.changed()
	}
	return added, page.HasMore, nil
}

// Typing records a keystroke in the composer.
func (s *Session) Typing(ctx context.Context) bool {
	s.mu.Lock()
	emitter := s.emitter
	s.mu.Unlock()
	if emitter == nil {
		return false
	}
	return emitter.Signal(ctx)
}

// Entries returns the view, oldest first.
func (s *Session) Entries() []broadcast.Entry {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view == nil {
		return nil
	}
	return view.Entries()
}

// TypingNames returns who else is typing in the open channel.
func (s *Session) TypingNames() []string {
	s.mu.Lock()
	subscription := s.subscription
	s.mu.Unlock()
	if subscription == nil {
		return nil
	}
	return subscription.Typing()
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}
