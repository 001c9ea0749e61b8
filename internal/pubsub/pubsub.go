// Package pubsub is the topic fan-out used for live channel delivery.
package pubsub

import (
	"context"

	"github.com/pkg/errors"
)

// ErrClosed is returned by a transport after Close.
var ErrClosed = errors.New("pubsub transport closed")

// Handler receives one raw payload published on a topic.
type Handler func(payload []byte)

// Subscription is a live registration on a topic. After Unsubscribe returns
// the handler is never invoked again. Unsubscribe must not be called from
// inside the handler.
type Subscription interface {
	Unsubscribe() error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error)
}

// Transport is both halves of a pub/sub backend.
type Transport interface {
	Publisher
	Subscriber
	Close() error
}
