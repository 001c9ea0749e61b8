package rabbitmq

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/pubsub"
)

// Transport carries channel topics over a topic exchange. Each subscription
// gets its own exclusive auto-delete queue bound to the topic.
type Transport struct {
	conn     *amqp.Connection
	pubMu    sync.Mutex
	pub      *amqp.Channel
	exchange string
}

var _ pubsub.Transport = (*Transport)(nil)

// NewTransport dials amqpURL and declares exchange.
func NewTransport(amqpURL, exchange string) (*Transport, error) {
	conn, ch, err := dialExchange(amqpURL, exchange)
	if err != nil {
		return nil, err
	}
	jww.INFO.Printf("amqp pubsub connected exchange=%s", exchange)
	return &Transport{conn: conn, pub: ch, exchange: exchange}, nil
}

func (t *Transport) Publish(ctx context.Context, topic string, payload []byte) error {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()
	err := t.pub.PublishWithContext(ctx, t.exchange, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	return errors.Wrap(err, "amqp publish")
}

func (t *Transport) Subscribe(_ context.Context, topic string, handler pubsub.Handler) (pubsub.Subscription, error) {
	ch, err := t.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open amqp channel")
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "declare queue")
	}
	if err := ch.QueueBind(q.Name, topic, t.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, errors.Wrapf(err, "bind queue to %s", topic)
	}

	// consumer lifetime is tied to Unsubscribe, not ctx
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "consume")
	}

	sub := &amqpSub{ch: ch, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for d := range deliveries {
			handler(d.Body)
		}
	}()
	return sub, nil
}

func (t *Transport) Close() error {
	if t.pub != nil {
		_ = t.pub.Close()
	}
	return t.conn.Close()
}

type amqpSub struct {
	ch   *amqp.Channel
	done chan struct{}
	once sync.Once
	err  error
}

// Unsubscribe closes the consumer channel and waits for the delivery loop to drain.
func (s *amqpSub) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ch.Close()
		<-s.done
	})
	return s.err
}
