package handlers

import (
	"net/http"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/middleware"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	scores *services.ScoreService
}

func NewVoteHandler(scores *services.ScoreService) *VoteHandler {
	return &VoteHandler{scores: scores}
}

type voteRequest struct {
	Value *int `json:"value" form:"value"`
}

// Vote 投票。value 缺省为 1；同一用户重复投票会覆盖之前的选择
func (h *VoteHandler) Vote(c *gin.Context) {
	var req voteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			RespondError(c, apperrors.BadRequest("invalid vote body"))
			return
		}
	}
	value := 1
	if req.Value != nil {
		value = *req.Value
	}
	h.submit(c, value)
}

// Downvote 点踩
func (h *VoteHandler) Downvote(c *gin.Context) {
	h.submit(c, -1)
}

func (h *VoteHandler) submit(c *gin.Context, value int) {
	entityType, ok := services.ParseVotableType(c.Param("type"))
	if !ok {
		RespondError(c, apperrors.BadRequest("unknown entity type"))
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	agg, err := h.scores.SubmitVote(c.Request.Context(), userID, services.EntityRef{Type: entityType, ID: id}, value)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, voteView(agg))
}

// Show 读取票数，匿名可访问
func (h *VoteHandler) Show(c *gin.Context) {
	entityType, ok := services.ParseVotableType(c.Param("type"))
	if !ok {
		RespondError(c, apperrors.BadRequest("unknown entity type"))
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	agg, err := h.scores.Aggregate(c.Request.Context(), services.EntityRef{Type: entityType, ID: id}, middleware.ViewerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, voteView(agg))
}

func voteView(agg services.Aggregate) gin.H {
	return gin.H{
		"upvotes":    agg.Upvotes,
		"downvotes":  agg.Downvotes,
		"viewerVote": agg.ViewerVote,
		"score":      agg.Score(),
	}
}
