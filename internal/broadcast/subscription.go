package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/models"
	"channel-service/internal/pubsub"
	"channel-service/internal/typing"
)

// Handlers are the callbacks of a Subscription. Nil handlers are skipped.
// They run one at a time and must not call Unsubscribe.
type Handlers struct {
	OnNewMessage     func(msg models.MessageView)
	OnTyping         func(names []string)
	OnMessageDeleted func(messageID uuid.UUID)
}

// Subscription is one client's live view of a channel topic. It owns the
// typing state for that channel.
type Subscription struct {
	channelID uuid.UUID
	handlers  Handlers
	tracker   *typing.Tracker

	mu     sync.Mutex
	closed bool
	sub    pubsub.Subscription
}

// Subscribe opens a subscription on channelID. selfName is hidden from the
// typing list.
func Subscribe(ctx context.Context, subscriber pubsub.Subscriber, channelID uuid.UUID, selfName string, typingTimeout time.Duration, h Handlers) (*Subscription, error) {
	s := &Subscription{channelID: channelID, handlers: h}
	s.tracker = typing.NewTracker(selfName, typingTimeout, s.typingChanged)

	sub, err := subscriber.Subscribe(ctx, Topic(channelID), s.deliver)
	if err != nil {
		s.tracker.Stop()
		return nil, errors.Wrapf(err, "subscribe to channel %s", channelID)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return s, nil
}

// ChannelID returns the subscribed channel.
func (s *Subscription) ChannelID() uuid.UUID {
	return s.channelID
}

// Typing returns the current typing names.
func (s *Subscription) Typing() []string {
	return s.tracker.Names()
}

// Unsubscribe stops delivery. No handler runs after it returns.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()

	s.tracker.Stop()
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

func (s *Subscription) deliver(data []byte) {
	env, err := Decode(data)
	if err != nil {
		jww.WARN.Printf("channel %s: dropping malformed broadcast: %v", s.channelID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch env.Kind {
	case models.EventNewMessage:
		var msg models.MessageView
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			jww.WARN.Printf("channel %s: bad new_message payload: %v", s.channelID, err)
			return
		}
		if msg.Reactions == nil {
			msg.Reactions = []models.ReactionSummary{}
		}
		if s.handlers.OnNewMessage != nil {
			s.handlers.OnNewMessage(msg)
		}
	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			jww.WARN.Printf("channel %s: bad typing payload: %v", s.channelID, err)
			return
		}
		if s.tracker.Observe(p.DisplayName) && s.handlers.OnTyping != nil {
			s.handlers.OnTyping(s.tracker.Names())
		}
	case models.EventMessageDeleted:
		var p models.DeletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			jww.WARN.Printf("channel %s: bad message_deleted payload: %v", s.channelID, err)
			return
		}
		if s.handlers.OnMessageDeleted != nil {
			s.handlers.OnMessageDeleted(p.MessageID)
		}
	default:
		jww.WARN.Printf("channel %s: dropping unknown event kind %q", s.channelID, env.Kind)
	}
}

func (s *Subscription) typingChanged(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.handlers.OnTyping == nil {
		return
	}
	s.handlers.OnTyping(names)
}
