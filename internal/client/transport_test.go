package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/broadcast"
	"channel-service/internal/identity"
)

func TestWSTransportDeliversFrames(t *testing.T) {
	channelID := uuid.New()
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var gotPath, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotUser = r.Header.Get(identity.HeaderUserID)
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"typing","payload":{"display_name":"bob"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	transport, err := NewWSTransport(srv.URL, "u1", "sig")
	require.NoError(t, err)

	var frames []string
	sub, err := transport.Subscribe(context.Background(), broadcast.Topic(channelID), func(data []byte) {
		mu.Lock()
		frames = append(frames, string(data))
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "/ws/channels/"+channelID.String(), gotPath)
	assert.Equal(t, "u1", gotUser)
	assert.True(t, strings.Contains(frames[0], `"typing"`))
	mu.Unlock()

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
}

func TestWSTransportRejectsForeignTopic(t *testing.T) {
	transport, err := NewWSTransport("ws://localhost:1", "u1", "sig")
	require.NoError(t, err)

	_, err = transport.Subscribe(context.Background(), "ws_events.channels", func([]byte) {})
	assert.Error(t, err)
}
