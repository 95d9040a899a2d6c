package handlers

import (
	"net/http"
	"strconv"
	"time"

	"pinboard/internal/models"
	"pinboard/internal/services"
	"pinboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	unread *services.UnreadService
}

func NewNotificationHandler(unread *services.UnreadService) *NotificationHandler {
	return &NotificationHandler{unread: unread}
}

type notificationView struct {
	ID         uint                    `json:"id"`
	Type       models.NotificationType `json:"type"`
	Message    string                  `json:"message"`
	EntityType models.EntityType       `json:"entityType"`
	EntityID   uint                    `json:"entityId"`
	ThreadID   *uint                   `json:"threadId"`
	CreatedAt  time.Time               `json:"createdAt"`
	ReadAt     *time.Time              `json:"readAt"`
	Actor      gin.H                   `json:"actor"`
}

func toNotificationView(n models.Notification) notificationView {
	return notificationView{
		ID:         n.ID,
		Type:       n.Type,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		ThreadID:   n.ThreadID,
		CreatedAt:  n.CreatedAt,
		ReadAt:     n.ReadAt,
		Actor:      gin.H{"id": n.Actor.ID, "name": n.Actor.Name, "handle": n.Actor.Handle},
	}
}

// List 我的通知，?unread=1 只看未读，?limit= 1..100
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	opts := services.ListOptions{Limit: limit, UnreadOnly: utils.ParseBoolFlag(c.Query("unread"))}

	list, err := h.unread.ListNotifications(c.Request.Context(), userID, opts)
	if err != nil {
		RespondError(c, err)
		return
	}
	count, err := h.unread.UnreadNotificationCount(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	views := make([]notificationView, len(list))
	for i, n := range list {
		views[i] = toNotificationView(n)
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views, "unreadCount": count})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count, err := h.unread.UnreadNotificationCount(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// Read 标记单条通知为已读
func (h *NotificationHandler) Read(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	marked, err := h.unread.MarkOneRead(c.Request.Context(), userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	count, err := h.unread.UnreadNotificationCount(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markedRead": marked, "unreadCount": count})
}

// ReadAll 全部通知标记为已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	marked, err := h.unread.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	count, err := h.unread.UnreadNotificationCount(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markedRead": marked, "unreadCount": count})
}
