package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionPurchase AuditAction = "purchase"
	AuditActionRedeem   AuditAction = "redeem"
	AuditActionApprove  AuditAction = "approve"
	AuditActionReject   AuditAction = "reject"
)

const (
	contextKeyAuditResourceID = "audit_resource_id"
	contextKeyAuditMetadata   = "audit_metadata"
	contextKeyAuditSkip       = "audit_skip"
)

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	ID           string         `json:"id"`
	UserID       *string        `json:"user_id,omitempty"`
	UserRole     string         `json:"user_role,omitempty"`
	Action       AuditAction    `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Status       int            `json:"status"`
	IPAddress    string         `json:"ip_address,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditSink persists a batch of entries
type AuditSink interface {
	WriteAudit(ctx context.Context, entries []*AuditEntry) error
}

// AuditConfig holds configuration for the audit middleware
type AuditConfig struct {
	Sink          AuditSink
	BufferSize    int
	FlushInterval time.Duration
	BatchSize     int
	// SkipPaths are never audited
	SkipPaths []string
}

// DefaultAuditConfig returns defaults writing to sink
func DefaultAuditConfig(sink AuditSink) *AuditConfig {
	return &AuditConfig{
		Sink:          sink,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
		SkipPaths:     []string{"/health"},
	}
}

// AuditLogger buffers entries and flushes them from a single worker
type AuditLogger struct {
	config    *AuditConfig
	buffer    chan *AuditEntry
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAuditLogger starts the background worker
func NewAuditLogger(config *AuditConfig) *AuditLogger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	al := &AuditLogger{
		config: config,
		buffer: make(chan *AuditEntry, config.BufferSize),
	}

	al.wg.Add(1)
	go al.worker()

	return al
}

// Log enqueues entry without blocking; a full buffer drops it
func (al *AuditLogger) Log(entry *AuditEntry) {
	al.mu.RLock()
	defer al.mu.RUnlock()
	if al.closed {
		return
	}
	select {
	case al.buffer <- entry:
	default:
		logger.Warn("audit buffer full, dropping entry", zap.String("resource_type", entry.ResourceType))
	}
}

// Close flushes pending entries and stops the worker
func (al *AuditLogger) Close() error {
	al.closeOnce.Do(func() {
		al.mu.Lock()
		al.closed = true
		close(al.buffer)
		al.mu.Unlock()
		al.wg.Wait()
	})
	return nil
}

func (al *AuditLogger) worker() {
	defer al.wg.Done()

	ticker := time.NewTicker(al.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*AuditEntry, 0, al.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		al.flush(batch)
		batch = make([]*AuditEntry, 0, al.config.BatchSize)
	}

	for {
		select {
		case entry, ok := <-al.buffer:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= al.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (al *AuditLogger) flush(entries []*AuditEntry) {
	if al.config.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := al.config.Sink.WriteAudit(ctx, entries); err != nil {
		logger.Error("audit flush failed", zap.Int("entries", len(entries)), zap.Error(err))
	}
}

// PostgresAuditSink writes entries to audit_logs with one pgx batch per flush
type PostgresAuditSink struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditSink(pool *pgxpool.Pool) *PostgresAuditSink {
	return &PostgresAuditSink{pool: pool}
}

func (s *PostgresAuditSink) WriteAudit(ctx context.Context, entries []*AuditEntry) error {
	const query = `
		INSERT INTO audit_logs (
			id, user_id, user_role, action, resource_type, resource_id,
			status, ip_address, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	batch := &pgx.Batch{}
	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil || e.Metadata == nil {
			metadata = []byte("{}")
		}
		batch.Queue(query,
			e.ID, e.UserID, e.UserRole, string(e.Action), e.ResourceType, e.ResourceID,
			e.Status, e.IPAddress, e.RequestID, metadata, e.CreatedAt,
		)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// AuditMiddleware records every mutating request after the handler ran
func AuditMiddleware(al *AuditLogger) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(al.config.SkipPaths))
	for _, p := range al.config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if c.GetBool(contextKeyAuditSkip) {
			return
		}

		resourceType, resourceID := resourceFromPath(c.Request.URL.Path)
		entry := &AuditEntry{
			ID:           uuid.NewString(),
			Action:       actionFor(c.Request.Method, c.Request.URL.Path),
			ResourceType: resourceType,
			Status:       c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			RequestID:    GetRequestID(c),
			CreatedAt:    start,
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = &userID
		}
		entry.UserRole, _ = GetRole(c)
		if id := c.GetString(contextKeyAuditResourceID); id != "" {
			resourceID = id
		}
		if resourceID != "" {
			entry.ResourceID = &resourceID
		}
		if meta, ok := c.Get(contextKeyAuditMetadata); ok {
			entry.Metadata, _ = meta.(map[string]any)
		}

		al.Log(entry)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func actionFor(method, path string) AuditAction {
	switch {
	case strings.HasSuffix(path, "/tickets") && method == http.MethodPost:
		return AuditActionPurchase
	case strings.HasSuffix(path, "/redeem"):
		return AuditActionRedeem
	case strings.HasSuffix(path, "/approve"):
		return AuditActionApprove
	case strings.HasSuffix(path, "/reject"):
		return AuditActionReject
	}
	switch method {
	case http.MethodPost:
		return AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return AuditActionUpdate
	default:
		return AuditActionDelete
	}
}

// resourceFromPath maps /api/v1/posts/<uuid>/likes to ("post", "<uuid>")
func resourceFromPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for len(parts) > 0 && (parts[0] == "api" || (strings.HasPrefix(parts[0], "v") && len(parts[0]) <= 3)) {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "unknown", ""
	}
	resourceType := strings.TrimSuffix(parts[0], "s")
	if len(parts) > 1 {
		if _, err := uuid.Parse(parts[1]); err == nil {
			return resourceType, parts[1]
		}
	}
	return resourceType, ""
}

// SetAuditResourceID records the id of a resource created by the handler
func SetAuditResourceID(c *gin.Context, resourceID string) {
	c.Set(contextKeyAuditResourceID, resourceID)
}

// SetAuditMetadata attaches extra fields to the entry
func SetAuditMetadata(c *gin.Context, metadata map[string]any) {
	c.Set(contextKeyAuditMetadata, metadata)
}

// SkipAudit marks the current request to skip audit logging
func SkipAudit(c *gin.Context) {
	c.Set(contextKeyAuditSkip, true)
}
