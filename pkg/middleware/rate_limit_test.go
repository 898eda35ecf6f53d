package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter_Allow(t *testing.T) {
	rl := NewLocalRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, remaining := rl.Allow("alice")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok)
	ok, _ = rl.Allow("alice")
	assert.False(t, ok)

	// other keys have their own bucket
	ok, _ = rl.Allow("bob")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok)

	allowed, rejected := rl.Stats()
	assert.Equal(t, uint64(4), allowed)
	assert.Equal(t, uint64(1), rejected)
}

func TestLocalRateLimiter_Evict(t *testing.T) {
	rl := NewLocalRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("alice")
	ok, _ := rl.Allow("alice")
	require.False(t, ok)

	rl.evict(now.Add(time.Second))
	ok, _ = rl.Allow("alice")
	assert.True(t, ok, "evicted bucket starts full")
}

func rateLimitedRouter(rl *RateLimiter, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	})
	r.POST("/buy", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRateLimiter_Local(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	defer rl.Stop()
	r := rateLimitedRouter(rl, "alice")

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/buy", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_Redis(t *testing.T) {
	now := time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	sha := goredis.NewScript(rateLimitScript).Hash()

	allowed := []interface{}{int64(1), int64(4)}
	tests := []struct {
		name      string
		userID    string
		key       string
		val       []interface{}
		err       error
		wantCode  int
		remaining string
	}{
		{"allowed", "alice", "ratelimit:alice", allowed, nil, http.StatusCreated, "4"},
		{"rejected", "alice", "ratelimit:alice", []interface{}{int64(0), int64(0)}, nil, http.StatusTooManyRequests, "0"},
		{"anonymous keyed by ip", "", "ratelimit:ip:192.0.2.1", allowed, nil, http.StatusCreated, "4"},
		{"redis down fails open", "alice", "ratelimit:alice", nil, errors.New("connection refused"), http.StatusCreated, "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			expect := mock.ExpectEvalSha(sha, []string{tt.key}, 5, 10, now.UnixMilli())
			if tt.err != nil {
				expect.SetErr(tt.err)
			} else {
				expect.SetVal(tt.val)
			}

			cfg := DefaultRateLimitConfig()
			cfg.Redis = redis.Wrap(db)
			rl := NewRateLimiter(cfg)
			rl.remote.now = func() time.Time { return now }

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/buy", nil)
			req.RemoteAddr = "192.0.2.1:4000"
			rateLimitedRouter(rl, tt.userID).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.remaining, w.Header().Get("X-RateLimit-Remaining"))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
