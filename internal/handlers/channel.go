package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-service/internal/chat"
	"channel-service/internal/middleware"
	"channel-service/internal/models"
)

// ChannelHandler serves the channel messaging API.
type ChannelHandler struct {
	svc *chat.Service
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(svc *chat.Service) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

// Register mounts every channel route behind auth.
func Register(router gin.IRouter, h *ChannelHandler, auth gin.HandlerFunc) {
	g := router.Group("/", auth)
	g.GET("/channels", h.ListChannels)
	g.POST("/channels", h.CreateChannel)
	g.POST("/channels/direct", h.StartDirect)
	g.DELETE("/channels/:channel_id", h.ArchiveChannel)
	g.GET("/channels/:channel_id/messages", h.GetMessages)
	g.POST("/channels/:channel_id/messages", h.PostMessage)
	g.POST("/channels/:channel_id/typing", h.Typing)
	g.POST("/channels/:channel_id/read", h.MarkRead)
	g.DELETE("/messages/:message_id", h.DeleteMessage)
	g.POST("/messages/:message_id/reactions", h.ToggleReaction)
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return user, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// ListChannels returns the channels visible to the caller.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	channels, err := h.svc.ListChannels(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// CreateChannel creates a community, leaders or group channel.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string     `json:"name" binding:"required"`
		Type        string     `json:"type" binding:"required"`
		Description string     `json:"description"`
		GroupID     *uuid.UUID `json:"group_id"`
		MemberIDs   []string   `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	channel, err := h.svc.CreateChannel(c.Request.Context(), user, chat.CreateChannelInput{
		Name:        req.Name,
		Type:        models.ChannelType(req.Type),
		Description: req.Description,
		GroupID:     req.GroupID,
		MemberIDs:   req.MemberIDs,
	}, requestIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

// StartDirect finds or creates a direct channel with another user.
func (h *ChannelHandler) StartDirect(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	channel, created, err := h.svc.StartDirect(c.Request.Context(), user, req.UserID, requestIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"channel": channel, "created": created})
}

// ArchiveChannel retires a channel.
func (h *ChannelHandler) ArchiveChannel(c *gin.Context) {
	channelID, ok := uuidParam(c, "channel_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.ArchiveChannel(c.Request.Context(), user, channelID, requestIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMessages returns one page of history. ?cursor= walks backward.
func (h *ChannelHandler) GetMessages(c *gin.Context) {
	channelID, ok := uuidParam(c, "channel_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := h.svc.LoadPage(c.Request.Context(), user, channelID, c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PostMessage appends a message, optionally as a thread reply.
func (h *ChannelHandler) PostMessage(c *gin.Context) {
	channelID, ok := uuidParam(c, "channel_id")
	if !ok {
		return
	}
	var req struct {
		Content         string     `json:"content"`
		ParentMessageID *uuid.UUID `json:"parent_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), user, channelID, req.Content, req.ParentMessageID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Typing publishes a typing signal for the caller.
func (h *ChannelHandler) Typing(c *gin.Context) {
	channelID, ok := uuidParam(c, "channel_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.NotifyTyping(c.Request.Context(), user, channelID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// MarkRead moves the caller's read marker.
func (h *ChannelHandler) MarkRead(c *gin.Context) {
	channelID, ok := uuidParam(c, "channel_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), user, channelID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMessage soft-deletes a message for everyone.
func (h *ChannelHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteMessage(c.Request.Context(), user, messageID, requestIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleReaction adds or removes the caller's emoji.
func (h *ChannelHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := uuidParam(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	action, err := h.svc.ToggleReaction(c.Request.Context(), user, messageID, req.Emoji)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}
