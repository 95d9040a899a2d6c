package handlers

import (
	"net/http"

	"pinboard/internal/middleware"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	follows *services.FollowService
}

func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// Follow 关注，重复关注返回 created=false
func (h *FollowHandler) Follow(c *gin.Context) {
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	created, err := h.follows.Follow(c.Request.Context(), middleware.CurrentUser(c), targetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true, "created": created})
}

func (h *FollowHandler) Unfollow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := h.follows.Unfollow(c.Request.Context(), userID, targetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false, "removed": removed})
}

func (h *FollowHandler) Status(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	following, err := h.follows.IsFollowing(c.Request.Context(), userID, targetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
