package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"
	"go.opentelemetry.io/otel"

	"channel-service/internal/chat"
	"channel-service/internal/identity"
	"channel-service/internal/middleware"
	"channel-service/internal/models"
	"channel-service/internal/observability"
)

// ChannelWebSocketHandler streams a channel's broadcast envelopes to a browser.
type ChannelWebSocketHandler struct {
	hub  *Hub
	svc  *chat.Service
	auth middleware.Authenticator
}

// NewChannelWebSocketHandler constructs a ChannelWebSocketHandler.
func NewChannelWebSocketHandler(hub *Hub, svc *chat.Service, auth middleware.Authenticator) *ChannelWebSocketHandler {
	return &ChannelWebSocketHandler{hub: hub, svc: svc, auth: auth}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientFrame is what a browser may send up the socket.
type clientFrame struct {
	Kind models.EventKind `json:"kind"`
}

// Handle authenticates, authorizes and upgrades the connection, then relays
// typing frames until the client goes away.
func (h *ChannelWebSocketHandler) Handle(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("channel-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetHeader(identity.HeaderUserID)
	signature := c.GetHeader(identity.HeaderSignature)
	if userID == "" {
		userID = c.Query("user_id")
		signature = c.Query("signature")
	}
	user, err := h.auth.Authenticate(ctx, userID, signature)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if _, err := h.svc.AuthorizeRead(ctx, user, channelID); err != nil {
		switch {
		case errors.Is(err, chat.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, chat.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, chat.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	if err := h.hub.Join(ctx, channelID, conn, info); err != nil {
		jww.ERROR.Printf("ws join channel=%s: %v", channelID, err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		_ = conn.Close()
		return
	}

	observability.IncWSActive(wsKind)
	observability.IncWSEvent(wsKind, "ws_connect")
	publishLifecycle(ctx, channelID, info, "ws_connect", "")

	go h.readLoop(conn, channelID, user, info)
}

func (h *ChannelWebSocketHandler) readLoop(conn *websocket.Conn, channelID uuid.UUID, user models.User, info ConnInfo) {
	// the handshake context ends with the HTTP handler
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.hub.Leave(channelID, conn)
		observability.DecWSActive(wsKind)
		observability.IncWSEvent(wsKind, "ws_disconnect")
		publishLifecycle(ctx, channelID, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(wsKind, "ws_error")
				publishLifecycle(ctx, channelID, info, "ws_error", closeReason)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			jww.DEBUG.Printf("ws conn=%s: ignoring malformed frame: %v", info.ConnID, err)
			continue
		}
		switch frame.Kind {
		case models.EventTyping:
			if err := h.svc.NotifyTyping(ctx, user, channelID); err != nil {
				jww.DEBUG.Printf("ws conn=%s: typing rejected: %v", info.ConnID, err)
			}
		default:
			jww.DEBUG.Printf("ws conn=%s: ignoring frame kind %q", info.ConnID, frame.Kind)
		}
	}
}
