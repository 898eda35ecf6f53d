package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// startSpan opens the handler span and re-roots the request on it
func startSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), name)
	c.Request = c.Request.WithContext(ctx)
	return ctx, span
}

// fail writes the response for err and records it on span
func fail(c *gin.Context, span trace.Span, err error) {
	telemetry.RecordError(span, err)
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Get().WithContext(c.Request.Context()).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

// currentUser returns the authenticated user id or writes 401
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
		return "", false
	}
	return userID, true
}

// bindJSON decodes the body into req or writes 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return false
	}
	return true
}

// currentProfile resolves the caller's user profile
func currentProfile(ctx context.Context, c *gin.Context, graph service.GraphService) (string, *domain.Profile, error) {
	userID, _ := middleware.GetUserID(c)
	p, err := graph.GetProfileByUser(ctx, userID)
	return userID, p, err
}

// listLimit parses ?limit, falling back to the default on garbage
func listLimit(c *gin.Context) int {
	limit := defaultListLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}
	return limit
}

// pageRequest reads ?cursor and ?limit. It asks for one extra row so
// writePage can tell whether another page follows.
func pageRequest(c *gin.Context) (service.PageRequest, int) {
	limit := listLimit(c)
	return service.PageRequest{After: c.Query("cursor"), Limit: limit + 1}, limit
}

// writePage trims items to limit and answers with the id cursor of the last one
func writePage[T any](c *gin.Context, items []T, limit int, id func(T) string) {
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = id(items[limit-1])
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, response.CursorPage(items, len(items), next))
}
