package pubsub

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	jww "github.com/spf13/jwalterweatherman"
)

// Redis fans topics out across service instances through Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to addr and verifies the server answers.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	jww.INFO.Printf("redis pubsub connected addr=%s", addr)
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return errors.Wrap(r.rdb.Publish(ctx, topic, payload).Err(), "redis publish")
}

func (r *Redis) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	ps := r.rdb.Subscribe(ctx, topic)
	// wait for the subscribe confirmation so no publish after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "redis subscribe %s", topic)
	}

	sub := &redisSub{ps: ps, done: make(chan struct{})}
	ch := ps.Channel()
	go func() {
		defer close(sub.done)
		for msg := range ch {
			handler([]byte(msg.Payload))
		}
	}()
	return sub, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

func (s *redisSub) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}
