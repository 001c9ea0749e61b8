// Package broadcast fans channel events out over a pub/sub transport and
// reconciles a sender's optimistic copy with the echoed broadcast.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"channel-service/internal/models"
	"channel-service/internal/observability"
	"channel-service/internal/pubsub"
)

const topicPrefix = "chat:"

// Topic is the broadcast topic of a channel.
func Topic(channelID uuid.UUID) string {
	return topicPrefix + channelID.String()
}

// Encode wraps payload in a tagged envelope.
func Encode(kind models.EventKind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", kind)
	}
	return json.Marshal(models.Envelope{Kind: kind, Payload: raw})
}

// Decode parses an envelope without interpreting its payload.
func Decode(data []byte) (models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if env.Kind == "" {
		return models.Envelope{}, errors.New("envelope without kind")
	}
	return env, nil
}

// Coordinator publishes channel events. Transport failures are logged and
// counted; they never fail the caller's already-durable write.
type Coordinator struct {
	pub pubsub.Publisher
}

func NewCoordinator(pub pubsub.Publisher) *Coordinator {
	return &Coordinator{pub: pub}
}

// PublishMessage broadcasts a newly created message.
func (c *Coordinator) PublishMessage(ctx context.Context, msg models.MessageView) {
	c.publish(ctx, msg.ChannelID, models.EventNewMessage, msg)
}

// PublishTyping broadcasts a typing signal.
func (c *Coordinator) PublishTyping(ctx context.Context, channelID uuid.UUID, payload models.TypingPayload) {
	c.publish(ctx, channelID, models.EventTyping, payload)
}

// PublishDeletion tells subscribers to drop a message from their view.
func (c *Coordinator) PublishDeletion(ctx context.Context, channelID, messageID uuid.UUID) {
	c.publish(ctx, channelID, models.EventMessageDeleted, models.DeletedPayload{MessageID: messageID})
}

func (c *Coordinator) publish(ctx context.Context, channelID uuid.UUID, kind models.EventKind, payload any) {
	ctx, span := otel.Tracer("channel-service/broadcast").Start(ctx, "broadcast.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("channel.id", channelID.String()),
		attribute.String("event.kind", string(kind)),
	)

	data, err := Encode(kind, payload)
	if err == nil {
		err = c.pub.Publish(ctx, Topic(channelID), data)
	}
	if err != nil {
		span.RecordError(err)
		jww.WARN.Printf("broadcast %s on channel %s failed: %v", kind, channelID, err)
		observability.IncBroadcastPublish(string(kind), "error")
		return
	}
	observability.IncBroadcastPublish(string(kind), "ok")
}
