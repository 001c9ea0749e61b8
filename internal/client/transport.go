package client

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/identity"
	"channel-service/internal/pubsub"
)

const topicPrefix = "chat:"

// WSTransport subscribes to channel topics through the websocket gateway.
// Each subscription is its own connection.
type WSTransport struct {
	base      *url.URL
	userID    string
	signature string
	dialer    *websocket.Dialer
}

// NewWSTransport builds a transport for a gateway at baseURL (ws:// or wss://).
func NewWSTransport(baseURL, userID, signature string) (*WSTransport, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse gateway url")
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	}
	return &WSTransport{
		base:      base,
		userID:    userID,
		signature: signature,
		dialer:    websocket.DefaultDialer,
	}, nil
}

// Subscribe dials the gateway for the channel named by topic.
func (t *WSTransport) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) (pubsub.Subscription, error) {
	channelID, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return nil, errors.Errorf("unsupported topic %q", topic)
	}

	u := *t.base
	u.Path = t.base.Path + "/ws/channels/" + channelID
	header := http.Header{}
	header.Set(identity.HeaderUserID, t.userID)
	header.Set(identity.HeaderSignature, t.signature)

	conn, resp, err := t.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s: status %d", topic, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", topic)
	}

	sub := &wsSub{conn: conn, done: make(chan struct{})}
	go sub.read(topic, handler)
	return sub, nil
}

type wsSub struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (s *wsSub) read(topic string, handler pubsub.Handler) {
	defer close(s.done)
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				jww.DEBUG.Printf("gateway read ended topic=%s: %v", topic, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handler(data)
	}
}

func (s *wsSub) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	<-s.done
	return err
}
