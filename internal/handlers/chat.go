package handlers

import (
	"net/http"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chat   *services.ChatService
	unread *services.UnreadService
}

func NewChatHandler(chat *services.ChatService, unread *services.UnreadService) *ChatHandler {
	return &ChatHandler{chat: chat, unread: unread}
}

type messageView struct {
	ID           uint       `json:"id"`
	SenderID     uint       `json:"senderId"`
	RecipientID  uint       `json:"recipientId"`
	Body         string     `json:"body"`
	SharedThread gin.H      `json:"sharedThread,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReadAt       *time.Time `json:"readAt"`
}

func toMessageView(m models.DirectMessage) messageView {
	v := messageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
	if m.SharedThread != nil {
		v.SharedThread = gin.H{"id": m.SharedThread.ID, "title": m.SharedThread.Title}
	}
	return v
}

// List 聊天列表，包含每个会话的未读数和总未读数
func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	users, total, err := h.chat.ListConversations(c.Request.Context(), userID, c.Query("search"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "totalUnread": total})
}

// Open 打开会话，会把对方发来的消息标记为已读
func (h *ChatHandler) Open(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	other, messages, err := h.chat.OpenConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		RespondError(c, err)
		return
	}
	total, err := h.unread.UnreadDirectMessageCount(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	views := make([]messageView, len(messages))
	for i, m := range messages {
		views[i] = toMessageView(m)
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        gin.H{"id": other.ID, "name": other.Name, "handle": other.Handle},
		"messages":    views,
		"totalUnread": total,
	})
}

type sendRequest struct {
	Body           string `json:"body" form:"body"`
	SharedThreadID *uint  `json:"sharedThreadId" form:"sharedThreadId"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	sender := middleware.CurrentUser(c)
	if sender == nil {
		RespondError(c, apperrors.Unauthorized("login required"))
		return
	}
	recipientID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, apperrors.BadRequest("invalid message body"))
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), sender, recipientID, services.SendInput{Body: req.Body, SharedThreadID: req.SharedThreadID})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": toMessageView(*msg)})
}
