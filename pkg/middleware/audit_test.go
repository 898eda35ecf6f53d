package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

func (s *memorySink) WriteAudit(_ context.Context, entries []*AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memorySink) all() []*AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*AuditEntry(nil), s.entries...)
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		expected AuditAction
	}{
		{"POST creates", http.MethodPost, "/api/v1/posts", AuditActionCreate},
		{"PATCH updates", http.MethodPatch, "/api/v1/posts/123", AuditActionUpdate},
		{"DELETE deletes", http.MethodDelete, "/api/v1/follows", AuditActionDelete},
		{"ticket purchase", http.MethodPost, "/api/v1/events/1/tickets", AuditActionPurchase},
		{"redeem", http.MethodPost, "/api/v1/tickets/redeem", AuditActionRedeem},
		{"approve", http.MethodPost, "/api/v1/reservations/1/approve", AuditActionApprove},
		{"reject", http.MethodPost, "/api/v1/reservations/1/reject", AuditActionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, actionFor(tt.method, tt.path))
		})
	}
}

func TestResourceFromPath(t *testing.T) {
	id := "123e4567-e89b-12d3-a456-426614174000"
	tests := []struct {
		name         string
		path         string
		expectedType string
		expectedID   string
	}{
		{"simple resource", "/api/v1/posts/" + id, "post", id},
		{"resource list", "/api/v1/events", "event", ""},
		{"non uuid id", "/api/v1/events/123", "event", ""},
		{"no api prefix", "/clubs/" + id, "club", id},
		{"deep path", "/api/v1/events/" + id + "/tickets", "event", id},
		{"root", "/", "unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resourceType, resourceID := resourceFromPath(tt.path)
			assert.Equal(t, tt.expectedType, resourceType)
			assert.Equal(t, tt.expectedID, resourceID)
		})
	}
}

func TestAuditMiddleware(t *testing.T) {
	sink := &memorySink{}
	al := NewAuditLogger(&AuditConfig{Sink: sink, BatchSize: 10, FlushInterval: time.Hour, SkipPaths: []string{"/health"}})

	router := gin.New()
	router.Use(RequestID(), func(c *gin.Context) {
		c.Set(ContextKeyUserID, "user-1")
		c.Set(ContextKeyRole, "customer")
		c.Next()
	}, AuditMiddleware(al))

	router.POST("/api/v1/events/:id/tickets", func(c *gin.Context) {
		SetAuditResourceID(c, "ticket-9")
		SetAuditMetadata(c, map[string]any{"event_id": c.Param("id")})
		c.Status(http.StatusCreated)
	})
	router.GET("/api/v1/feed", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.DELETE("/api/v1/follows", func(c *gin.Context) {
		SkipAudit(c)
		c.Status(http.StatusNoContent)
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/events/e1/tickets"},
		{http.MethodGet, "/api/v1/feed"},
		{http.MethodPost, "/health"},
		{http.MethodDelete, "/api/v1/follows"},
	} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	require.NoError(t, al.Close())

	entries := sink.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, AuditActionPurchase, e.Action)
	assert.Equal(t, "event", e.ResourceType)
	require.NotNil(t, e.ResourceID)
	assert.Equal(t, "ticket-9", *e.ResourceID)
	require.NotNil(t, e.UserID)
	assert.Equal(t, "user-1", *e.UserID)
	assert.Equal(t, http.StatusCreated, e.Status)
	assert.NotEmpty(t, e.RequestID)
	assert.Equal(t, "e1", e.Metadata["event_id"])
}

func TestAuditLogger_FlushesOnBatchSize(t *testing.T) {
	sink := &memorySink{}
	al := NewAuditLogger(&AuditConfig{Sink: sink, BatchSize: 2, FlushInterval: time.Hour})
	defer al.Close()

	al.Log(&AuditEntry{ID: "a"})
	al.Log(&AuditEntry{ID: "b"})

	assert.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestAuditLogger_LogAfterClose(t *testing.T) {
	al := NewAuditLogger(DefaultAuditConfig(&memorySink{}))
	require.NoError(t, al.Close())
	require.NoError(t, al.Close())

	assert.NotPanics(t, func() { al.Log(&AuditEntry{ID: "late"}) })
}
