package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/models"
)

type recordingPublisher struct {
	topic   string
	payload []byte
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return p.err
}

func TestTopicFormat(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-0000-4000-8000-000000000001")
	assert.Equal(t, "chat:6f1c2a4e-0000-4000-8000-000000000001", Topic(id))
}

func TestPublishMessageEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	msg := view("hello")

	NewCoordinator(pub).PublishMessage(context.Background(), msg)

	assert.Equal(t, Topic(msg.ChannelID), pub.topic)
	env, err := Decode(pub.payload)
	require.NoError(t, err)
	assert.Equal(t, models.EventNewMessage, env.Kind)
	assert.Contains(t, string(env.Payload), `"content":"hello"`)
}

func TestPublishTypingEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	channelID := uuid.New()

	NewCoordinator(pub).PublishTyping(context.Background(), channelID, models.TypingPayload{DisplayName: "alice"})

	assert.JSONEq(t, `{"kind":"typing","payload":{"display_name":"alice"}}`, string(pub.payload))
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("connection reset")}
	assert.NotPanics(t, func() {
		NewCoordinator(pub).PublishDeletion(context.Background(), uuid.New(), uuid.New())
	})
	assert.NotEmpty(t, pub.payload)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}
