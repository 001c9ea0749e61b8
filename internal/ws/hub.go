package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/broadcast"
	"channel-service/internal/observability"
	"channel-service/internal/pubsub"
)

const wsKind = "channel"

const (
	// sendBuffer is how many envelopes a client may lag before it is dropped.
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var errSlowClient = errors.New("client send buffer full")

// wsConn is the part of *websocket.Conn the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client owns the only writer of its conn. Delivery enqueues and never
// waits on the socket.
type client struct {
	conn wsConn
	info ConnInfo
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn wsConn, info ConnInfo, fail func(*client, error)) *client {
	c := &client{
		conn: conn,
		info: info,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop(fail)
	return c
}

func (c *client) writeLoop(fail func(*client, error)) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				fail(c, err)
				return
			}
		}
	}
}

func (c *client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

type room struct {
	clients map[wsConn]*client
	sub     pubsub.Subscription
}

// Hub keeps one transport subscription per channel with live websocket
// clients and relays every envelope to them unchanged.
type Hub struct {
	subscriber pubsub.Subscriber

	// lifecycle serializes room creation and teardown; delivery never takes it
	lifecycle sync.Mutex
	mu        sync.RWMutex
	rooms     map[uuid.UUID]*room
}

// NewHub creates an empty hub.
func NewHub(subscriber pubsub.Subscriber) *Hub {
	return &Hub{
		subscriber: subscriber,
		rooms:      make(map[uuid.UUID]*room),
	}
}

// Join registers conn on channelID, subscribing to the channel topic when it
// is the first local client.
func (h *Hub) Join(ctx context.Context, channelID uuid.UUID, conn wsConn, info ConnInfo) error {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	fail := func(c *client, err error) { h.evict(channelID, c, err) }

	h.mu.Lock()
	r, ok := h.rooms[channelID]
	if ok {
		r.clients[conn] = newClient(conn, info, fail)
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	// the room outlives the request that opened it
	sub, err := h.subscriber.Subscribe(context.WithoutCancel(ctx), broadcast.Topic(channelID), h.fanout(channelID))
	if err != nil {
		return errors.Wrapf(err, "subscribe channel %s", channelID)
	}

	h.mu.Lock()
	h.rooms[channelID] = &room{
		clients: map[wsConn]*client{conn: newClient(conn, info, fail)},
		sub:     sub,
	}
	h.mu.Unlock()
	jww.DEBUG.Printf("ws room opened channel=%s", channelID)
	return nil
}

// Leave removes conn and drops the channel subscription with the last client.
func (h *Hub) Leave(channelID uuid.UUID, conn wsConn) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.mu.Lock()
	r, ok := h.rooms[channelID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if c, ok := r.clients[conn]; ok {
		c.stop()
		delete(r.clients, conn)
	}
	if len(r.clients) > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, channelID)
	h.mu.Unlock()

	// outside h.mu: unsubscribe waits for an in-flight fanout
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			jww.WARN.Printf("ws room close channel=%s: %v", channelID, err)
		}
	}
	jww.DEBUG.Printf("ws room closed channel=%s", channelID)
}

// Clients returns the number of local clients on channelID.
func (h *Hub) Clients(channelID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[channelID]; ok {
		return len(r.clients)
	}
	return 0
}

// Rooms returns the number of channels with live clients.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) fanout(channelID uuid.UUID) pubsub.Handler {
	return func(payload []byte) {
		h.mu.RLock()
		r, ok := h.rooms[channelID]
		var clients []*client
		if ok {
			clients = make([]*client, 0, len(r.clients))
			for _, c := range r.clients {
				clients = append(clients, c)
			}
		}
		h.mu.RUnlock()

		for _, c := range clients {
			if !c.enqueue(payload) {
				h.evict(channelID, c, errSlowClient)
			}
		}
	}
}

// evict closes a broken or lagging client; the read loop's Leave tears the
// room down.
func (h *Hub) evict(channelID uuid.UUID, c *client, err error) {
	h.mu.Lock()
	r, ok := h.rooms[channelID]
	if !ok || r.clients[c.conn] != c {
		// already evicted or left
		h.mu.Unlock()
		return
	}
	delete(r.clients, c.conn)
	h.mu.Unlock()

	jww.WARN.Printf("websocket write error channel=%s conn=%s: %v", channelID, c.info.ConnID, err)
	c.stop()
	_ = c.conn.Close()
	h.publishWSError(channelID, c.info, err)
}

func (h *Hub) publishWSError(channelID uuid.UUID, info ConnInfo, err error) {
	publishLifecycle(context.Background(), channelID, info, "ws_error", err.Error())
	observability.IncWSEvent(wsKind, "ws_error")
}

func publishLifecycle(ctx context.Context, channelID uuid.UUID, info ConnInfo, event, reason string) {
	var duration int64
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.WSPayload{
			WS: observability.WSDetails{
				Kind:       wsKind,
				ResourceID: channelID.String(),
				Event:      event,
				ConnID:     info.ConnID,
				DurationMS: duration,
				Reason:     reason,
			},
			Identity: observability.WSIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

const wsRoutingKey = "ws_events.channels"
