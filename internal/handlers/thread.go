package handlers

import (
	"net/http"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/middleware"
	"pinboard/internal/services"
	"pinboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type ThreadHandler struct {
	threads *services.ThreadService
}

func NewThreadHandler(threads *services.ThreadService) *ThreadHandler {
	return &ThreadHandler{threads: threads}
}

type createThreadRequest struct {
	Board string `json:"board" form:"board"`
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// Create 发帖，标题/正文中的 @提及 会收到通知
func (h *ThreadHandler) Create(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, apperrors.BadRequest("invalid thread body"))
		return
	}

	thread, err := h.threads.CreateThread(c.Request.Context(), middleware.CurrentUser(c), services.CreateThreadInput{
		BoardSlug: req.Board,
		Title:     req.Title,
		Body:      req.Body,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": gin.H{
		"id":        thread.ID,
		"title":     thread.Title,
		"body":      thread.Body,
		"html":      utils.RenderMarkdown(thread.Body),
		"boardId":   thread.BoardID,
		"createdAt": thread.CreatedAt,
	}})
}

type createResponseRequest struct {
	Body     string `json:"body" form:"body"`
	ParentID *uint  `json:"parentId" form:"parentId"`
}

// CreateResponse 发表回复
func (h *ThreadHandler) CreateResponse(c *gin.Context) {
	threadID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createResponseRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, apperrors.BadRequest("invalid response body"))
		return
	}

	resp, err := h.threads.CreateResponse(c.Request.Context(), middleware.CurrentUser(c), threadID, services.CreateResponseInput{
		Body:     req.Body,
		ParentID: req.ParentID,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": gin.H{
		"id":        resp.ID,
		"threadId":  resp.ThreadID,
		"parentId":  resp.ParentID,
		"body":      resp.Body,
		"html":      utils.RenderMarkdown(resp.Body),
		"createdAt": resp.CreatedAt,
	}})
}
