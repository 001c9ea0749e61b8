package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"channel-service/internal/pubsub"
)

// PublisherMock stands in for the audit/event publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	args := m.Called(ctx, routingKey, message, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// TransportMock stands in for a pub/sub transport.
type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *TransportMock) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) (pubsub.Subscription, error) {
	args := m.Called(ctx, topic, handler)
	var sub pubsub.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(pubsub.Subscription)
	}
	return sub, args.Error(1)
}

func (m *TransportMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// SubscriptionMock records Unsubscribe calls.
type SubscriptionMock struct {
	mock.Mock
}

func (m *SubscriptionMock) Unsubscribe() error {
	args := m.Called()
	return args.Error(0)
}
