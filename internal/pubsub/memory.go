package pubsub

import (
	"context"
	"sync"
)

// Memory is an in-process transport. Publish delivers synchronously, in
// subscription order.
type Memory struct {
	mu     sync.RWMutex
	topics map[string][]*memorySub
	closed bool
}

type memorySub struct {
	owner   *Memory
	topic   string
	handler Handler

	mu   sync.Mutex
	done bool
}

// NewMemory builds an empty in-process transport.
func NewMemory() *Memory {
	return &Memory{topics: make(map[string][]*memorySub)}
}

func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*memorySub(nil), m.topics[topic]...)
	m.mu.RUnlock()

	for _, s := range subs {
		s.deliver(payload)
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, topic string, handler Handler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	s := &memorySub{owner: m, topic: topic, handler: handler}
	m.topics[topic] = append(m.topics[topic], s)
	return s, nil
}

// Subscribers reports how many live subscriptions a topic has.
func (m *Memory) Subscribers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics[topic])
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.topics = make(map[string][]*memorySub)
	return nil
}

func (s *memorySub) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.handler(payload)
}

func (s *memorySub) Unsubscribe() error {
	// waits for an in-flight delivery to finish
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()

	m := s.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.topics[s.topic]
	for i, other := range subs {
		if other == s {
			m.topics[s.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.topics[s.topic]) == 0 {
		delete(m.topics, s.topic)
	}
	return nil
}
