package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Checker probes one dependency
type Checker func(ctx context.Context) error

// HealthHandler reports service and dependency health
type HealthHandler struct {
	version  string
	checkers map[string]Checker
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler. checkers may be empty.
func NewHealthHandler(version string, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{version: version, checkers: checkers, timeout: 2 * time.Second}
}

// Health handles GET /health. Dependencies are probed concurrently; any failure
// turns the response into 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	results := make([]string, len(names))

	var g errgroup.Group
	for i, name := range names {
		check := h.checkers[name]
		g.Go(func() error {
			if err := check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	err := g.Wait()

	checks := make(map[string]string, len(names))
	for i, name := range names {
		checks[name] = results[i]
	}
	status, code := "ok", http.StatusOK
	if err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}
