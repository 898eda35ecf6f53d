package handler

import (
	"net/http"
	"strconv"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/feed"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
)

// FeedHandler serves the caller's merged home feed
type FeedHandler struct {
	engine *feed.Engine
	graph  service.GraphService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(engine *feed.Engine, graph service.GraphService) *FeedHandler {
	return &FeedHandler{engine: engine, graph: graph}
}

// Read handles GET /feed?cursor=&limit=
func (h *FeedHandler) Read(c *gin.Context) {
	ctx, span := startSpan(c, "handler.feed.read")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	size := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			fail(c, span, domain.Validation("limit", "limit must be an integer"))
			return
		}
		size = parsed
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	page, err := h.engine.ReadPage(ctx, p.ID, c.Query("cursor"), size)
	if err != nil {
		fail(c, span, err)
		return
	}
	posts := page.Posts
	if posts == nil {
		posts = []*domain.Post{}
	}
	c.JSON(http.StatusOK, response.CursorPage(posts, len(posts), page.NextCursor))
}
