// Package chat is the boundary of the channel messaging core: every
// operation resolves access, reads or writes the durable log and hands
// live events to the broadcast coordinator.
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"channel-service/internal/access"
	"channel-service/internal/broadcast"
	"channel-service/internal/models"
	"channel-service/internal/observability"
	"channel-service/internal/pagination"
	"channel-service/internal/pubsub"
	"channel-service/internal/reactions"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/threads"
	"channel-service/internal/typing"
)

const (
	DefaultMaxMessageLength = 4000
	maxChannelNameLength    = 100
)

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	PageSize         int
	MaxMessageLength int
	TypingInterval   time.Duration
}

// PageView is a history page with reactions and reply counts attached.
type PageView struct {
	Messages   []models.MessageView `json:"messages"`
	HasMore    bool                 `json:"has_more"`
	NextCursor *string              `json:"next_cursor"`
}

// CreateChannelInput describes a channel created by a leader.
type CreateChannelInput struct {
	Name        string
	Type        models.ChannelType
	Description string
	GroupID     *uuid.UUID
	MemberIDs   []string
}

type Service struct {
	channels  repositories.ChannelRepository
	messages  repositories.MessageRepository
	users     repositories.UserRepository
	pages     *pagination.Engine
	reactions *reactions.Aggregator
	threads   *threads.Index
	broadcast *broadcast.Coordinator
	typing    *typing.LimiterPool
	audit     *telemetry.AuditEmitter
	maxLen    int
	now       func() time.Time
}

func NewService(
	channels repositories.ChannelRepository,
	messages repositories.MessageRepository,
	reactionRepo repositories.ReactionRepository,
	users repositories.UserRepository,
	pub pubsub.Publisher,
	audit *telemetry.AuditEmitter,
	opts Options,
) *Service {
	maxLen := opts.MaxMessageLength
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &Service{
		channels:  channels,
		messages:  messages,
		users:     users,
		pages:     pagination.NewEngine(messages, opts.PageSize),
		reactions: reactions.NewAggregator(reactionRepo),
		threads:   threads.NewIndex(messages),
		broadcast: broadcast.NewCoordinator(pub),
		typing:    typing.NewLimiterPool(opts.TypingInterval, time.Minute),
		audit:     audit,
		maxLen:    maxLen,
		now:       time.Now,
	}
}

func tracer() trace.Tracer {
	return otel.Tracer("channel-service/chat")
}

func requireActive(user models.User) error {
	if user.ID == "" || !user.Active() {
		return ErrUnauthorized
	}
	return nil
}

// ListChannels returns the channels visible to user. Inactive users get an
// empty list rather than an error.
func (s *Service) ListChannels(ctx context.Context, user models.User) ([]models.Channel, error) {
	if requireActive(user) != nil {
		return []models.Channel{}, nil
	}

	all, err := s.channels.ListActiveChannels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list channels")
	}
	memberOf, err := s.channels.ListMemberChannelIDs(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list memberships")
	}
	return access.VisibleChannels(user, all, memberOf), nil
}

// AuthorizeRead returns the channel when user may read it.
func (s *Service) AuthorizeRead(ctx context.Context, user models.User, channelID uuid.UUID) (models.Channel, error) {
	return s.authorize(ctx, user, channelID, false)
}

func (s *Service) authorize(ctx context.Context, user models.User, channelID uuid.UUID, write bool) (models.Channel, error) {
	if err := requireActive(user); err != nil {
		return models.Channel{}, err
	}

	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, notFound(err, "channel")
	}

	isMember := false
	if channel.Type.RequiresMembership() {
		isMember, err = s.channels.IsMember(ctx, channelID, user.ID)
		if err != nil {
			return models.Channel{}, errors.Wrap(err, "check membership")
		}
	}

	allowed := access.CanRead(user, channel, isMember)
	if write {
		allowed = access.CanWrite(user, channel, isMember)
	}
	if !allowed {
		return models.Channel{}, ErrForbidden
	}
	return channel, nil
}

// LoadPage returns a page of history, oldest first, enriched for user.
func (s *Service) LoadPage(ctx context.Context, user models.User, channelID uuid.UUID, cursor string) (PageView, error) {
	ctx, span := tracer().Start(ctx, "chat.load_page")
	defer span.End()
	span.SetAttributes(attribute.String("channel.id", channelID.String()))

	if _, err := s.authorize(ctx, user, channelID, false); err != nil {
		return PageView{}, err
	}

	page, err := s.pages.LoadPage(ctx, channelID, cursor)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return PageView{}, invalid("cursor", "malformed cursor")
	}
	if err != nil {
		span.RecordError(err)
		return PageView{}, err
	}

	views, err := s.enrich(ctx, page.Messages, user.ID)
	if err != nil {
		span.RecordError(err)
		return PageView{}, err
	}
	observability.ObservePageLoad(len(views))
	return PageView{Messages: views, HasMore: page.HasMore, NextCursor: page.NextCursor}, nil
}

// enrich recomputes reactions and reply counts from the log on every call.
func (s *Service) enrich(ctx context.Context, msgs []models.Message, viewerID string) ([]models.MessageView, error) {
	views := make([]models.MessageView, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	summaries, err := s.reactions.Summarize(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.threads.ReplyCounts(ctx, threads.Roots(msgs))
	if err != nil {
		return nil, err
	}

	for i, m := range msgs {
		views[i] = models.NewMessageView(m)
		if r := summaries[m.ID]; r != nil {
			views[i].Reactions = r
		}
		views[i].ReplyCount = counts[m.ID]
	}
	return views, nil
}

// NormalizeBody canonicalizes a message body and enforces its length bound.
func NormalizeBody(body string, maxLen int) (string, error) {
	body = strings.TrimSpace(norm.NFC.String(body))
	if body == "" {
		return "", invalid("content", "message cannot be empty")
	}
	if utf8.RuneCountInString(body) > maxLen {
		return "", invalid("content", "message is too long")
	}
	return body, nil
}

// SendMessage appends a message and broadcasts it. A failed broadcast never
// fails the send.
func (s *Service) SendMessage(ctx context.Context, user models.User, channelID uuid.UUID, body string, parentID *uuid.UUID) (models.MessageView, error) {
	ctx, span := tracer().Start(ctx, "chat.send_message")
	defer span.End()
	span.SetAttributes(attribute.String("channel.id", channelID.String()))

	channel, err := s.authorize(ctx, user, channelID, true)
	if err != nil {
		return models.MessageView{}, err
	}

	content, err := NormalizeBody(body, s.maxLen)
	if err != nil {
		return models.MessageView{}, err
	}

	if parentID != nil {
		parent, err := s.messages.GetMessage(ctx, *parentID)
		if err != nil {
			return models.MessageView{}, notFound(err, "parent message")
		}
		if err := threads.ValidateParent(parent, channelID); err != nil {
			return models.MessageView{}, invalid("parent_message_id", err.Error())
		}
	}

	msg, err := s.messages.CreateMessage(ctx, channelID, user.ID, content, parentID)
	if err != nil {
		span.RecordError(err)
		return models.MessageView{}, errors.Wrap(err, "create message")
	}
	if msg.AuthorName == "" {
		msg.AuthorName = user.DisplayName()
	}

	view := models.NewMessageView(msg)
	observability.IncMessageSent(string(channel.Type))
	s.broadcast.PublishMessage(ctx, view)
	return view, nil
}

// DeleteMessage soft-deletes a message. Only its author or an admin may.
func (s *Service) DeleteMessage(ctx context.Context, user models.User, messageID uuid.UUID, requestID string) error {
	if err := requireActive(user); err != nil {
		return err
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return notFound(err, "message")
	}
	if msg.IsDeleted {
		return errors.Wrap(ErrNotFound, "message")
	}
	if msg.UserID != user.ID && user.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if _, err := s.authorize(ctx, user, msg.ChannelID, true); err != nil {
		return err
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return notFound(err, "message")
	}
	observability.IncMessageDeleted()
	s.broadcast.PublishDeletion(ctx, msg.ChannelID, messageID)
	s.audit.Emit(ctx, telemetry.AuditEvent{
		Level:     "info",
		Action:    "message.delete",
		ChannelID: msg.ChannelID.String(),
		Text:      "message " + messageID.String() + " deleted",
		RequestID: requestID,
		UserID:    user.ID,
	})
	return nil
}

// ToggleReaction flips user's emoji on a message.
func (s *Service) ToggleReaction(ctx context.Context, user models.User, messageID uuid.UUID, emoji string) (reactions.Action, error) {
	ctx, span := tracer().Start(ctx, "chat.toggle_reaction")
	defer span.End()

	if err := requireActive(user); err != nil {
		return "", err
	}
	if err := reactions.ValidateReaction(emoji); err != nil {
		return "", invalid("emoji", err.Error())
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return "", notFound(err, "message")
	}
	if msg.IsDeleted {
		return "", errors.Wrap(ErrNotFound, "message")
	}
	if _, err := s.authorize(ctx, user, msg.ChannelID, true); err != nil {
		return "", err
	}

	action, err := s.reactions.Toggle(ctx, messageID, user.ID, emoji)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	observability.IncReactionToggle(string(action))
	return action, nil
}

// NotifyTyping broadcasts that user is typing in channelID. Signals beyond
// one per typing interval per user are dropped.
func (s *Service) NotifyTyping(ctx context.Context, user models.User, channelID uuid.UUID) error {
	if _, err := s.authorize(ctx, user, channelID, true); err != nil {
		return err
	}

	if !s.typing.Allow(channelID.String() + ":" + user.ID) {
		observability.IncTypingSignal("throttled")
		return nil
	}
	observability.IncTypingSignal("published")
	s.broadcast.PublishTyping(ctx, channelID, models.TypingPayload{
		UserID:      user.ID,
		DisplayName: user.DisplayName(),
	})
	return nil
}

// MarkRead moves the caller's read marker to now.
func (s *Service) MarkRead(ctx context.Context, user models.User, channelID uuid.UUID) error {
	channel, err := s.authorize(ctx, user, channelID, false)
	if err != nil {
		return err
	}
	if !channel.Type.RequiresMembership() {
		return nil
	}
	return errors.Wrap(s.channels.MarkRead(ctx, channelID, user.ID, s.now()), "mark read")
}

// CreateChannel creates a community, leaders or group channel.
func (s *Service) CreateChannel(ctx context.Context, user models.User, in CreateChannelInput, requestID string) (models.Channel, error) {
	if err := requireActive(user); err != nil {
		return models.Channel{}, err
	}
	if !user.Role.IsLeader() {
		return models.Channel{}, ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxChannelNameLength {
		return models.Channel{}, invalid("name", "name must be 1-100 characters")
	}
	if !in.Type.Valid() {
		return models.Channel{}, invalid("type", "unknown channel type")
	}
	if in.Type == models.ChannelDirect {
		return models.Channel{}, invalid("type", "direct channels are started with a user")
	}

	var members []string
	if in.Type == models.ChannelGroup {
		members = append([]string{user.ID}, in.MemberIDs...)
	}

	channel, err := s.channels.CreateChannel(ctx, models.Channel{
		Name:        name,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		GroupID:     in.GroupID,
		CreatedBy:   user.ID,
	}, members)
	if err != nil {
		return models.Channel{}, errors.Wrap(err, "create channel")
	}

	s.audit.Emit(ctx, telemetry.AuditEvent{
		Level:     "info",
		Action:    "channel.create",
		ChannelID: channel.ID.String(),
		Text:      "channel " + channel.Name + " created",
		RequestID: requestID,
		UserID:    user.ID,
	})
	return channel, nil
}

// StartDirect finds or creates the direct channel between user and targetID.
// The boolean reports whether it was created by this call.
func (s *Service) StartDirect(ctx context.Context, user models.User, targetID string, requestID string) (models.Channel, bool, error) {
	if err := requireActive(user); err != nil {
		return models.Channel{}, false, err
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return models.Channel{}, false, invalid("user_id", "target user is required")
	}
	if targetID == user.ID {
		return models.Channel{}, false, invalid("user_id", "cannot message yourself")
	}

	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return models.Channel{}, false, notFound(err, "user")
	}

	name := user.DisplayName() + ", " + target.DisplayName()
	channel, created, err := s.channels.FindOrCreateDirect(ctx, user.ID, target.ID, name)
	if err != nil {
		return models.Channel{}, false, errors.Wrap(err, "find or create direct channel")
	}

	if created {
		s.audit.Emit(ctx, telemetry.AuditEvent{
			Level:     "info",
			Action:    "channel.direct",
			ChannelID: channel.ID.String(),
			Text:      "direct channel started",
			RequestID: requestID,
			UserID:    user.ID,
		})
	}
	return channel, created, nil
}

// ArchiveChannel retires a channel. History stays readable.
func (s *Service) ArchiveChannel(ctx context.Context, user models.User, channelID uuid.UUID, requestID string) error {
	if err := requireActive(user); err != nil {
		return err
	}
	if !user.Role.IsLeader() {
		return ErrForbidden
	}
	if err := s.channels.ArchiveChannel(ctx, channelID); err != nil {
		return notFound(err, "channel")
	}

	s.audit.Emit(ctx, telemetry.AuditEvent{
		Level:     "info",
		Action:    "channel.archive",
		ChannelID: channelID.String(),
		Text:      "channel archived",
		RequestID: requestID,
		UserID:    user.ID,
	})
	return nil
}
