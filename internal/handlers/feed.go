package handlers

import (
	"net/http"
	"strconv"

	"pinboard/internal/middleware"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// List GET /feed?scope=global|following&sort=new|top|active|discussed|hot&search=&board=
func (h *FeedHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	q := services.FeedQuery{
		Scope:     services.ParseScope(c.Query("scope")),
		Sort:      services.ParseSortMode(c.Query("sort")),
		Search:    c.Query("search"),
		BoardSlug: c.Query("board"),
		ViewerID:  middleware.ViewerID(c),
		Limit:     limit,
	}

	items, err := h.feed.Load(c.Request.Context(), q)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threads": items,
		"sort":    q.Sort,
		"scope":   q.Scope,
	})
}
