package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/redis"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitScriptName = "rate_limit"

// rateLimitScript is a token bucket kept in a hash. now is in milliseconds.
const rateLimitScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end
redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("PEXPIRE", key, math.ceil(burst / rate * 1000) + 1000)
return {allowed, math.floor(tokens)}
`

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Tokens refilled per second per key
	RequestsPerSecond int
	// Bucket capacity
	Burst int
	// Redis makes the limit shared across instances; nil keeps it in process
	Redis     *redis.Client
	KeyPrefix string
	// Local bucket housekeeping
	CleanupInterval time.Duration
	EntryTTL        time.Duration
}

// DefaultRateLimitConfig returns the limits used for ticket purchases
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// LocalRateLimiter is an in-memory token bucket per key
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewLocalRateLimiter creates a limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	rl := &LocalRateLimiter{config: config, now: time.Now, stop: make(chan struct{})}
	if config.CleanupInterval > 0 {
		go rl.cleanup()
	}
	return rl
}

// Allow takes one token for key and reports the tokens left
func (rl *LocalRateLimiter) Allow(key string) (bool, int) {
	now := rl.now()
	v, _ := rl.entries.LoadOrStore(key, &bucket{tokens: float64(rl.config.Burst), lastUpdate: now})
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastUpdate).Seconds(); elapsed > 0 {
		b.tokens = min(float64(rl.config.Burst), b.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		rl.allowed.Add(1)
		return true, int(b.tokens)
	}
	rl.rejected.Add(1)
	return false, 0
}

// Stats returns the allowed and rejected counts
func (rl *LocalRateLimiter) Stats() (allowed, rejected uint64) {
	return rl.allowed.Load(), rl.rejected.Load()
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(rl.now().Add(-rl.config.EntryTTL))
		case <-rl.stop:
			return
		}
	}
}

func (rl *LocalRateLimiter) evict(cutoff time.Time) {
	rl.entries.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if b.lastUpdate.Before(cutoff) {
			rl.entries.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// RedisRateLimiter runs the token bucket inside Redis
type RedisRateLimiter struct {
	config RateLimitConfig
	now    func() time.Time
}

// NewRedisRateLimiter registers the bucket script on the client
func NewRedisRateLimiter(config RateLimitConfig) *RedisRateLimiter {
	config.Redis.RegisterScript(rateLimitScriptName, rateLimitScript)
	return &RedisRateLimiter{config: config, now: time.Now}
}

// Allow takes one token for key and reports the tokens left
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	values, err := rl.config.Redis.EvalShaByName(ctx, rateLimitScriptName,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond,
		rl.config.Burst,
		rl.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	return values[0] == 1, int(values[1]), nil
}

// RateLimiter is a gin middleware keyed by the authenticated user, or the
// client IP when no user is set.
type RateLimiter struct {
	config RateLimitConfig
	local  *LocalRateLimiter
	remote *RedisRateLimiter
}

// NewRateLimiter picks the Redis limiter when a client is configured
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Redis != nil {
		return &RateLimiter{config: config, remote: NewRedisRateLimiter(config)}
	}
	return &RateLimiter{config: config, local: NewLocalRateLimiter(config)}
}

// Handler returns the middleware
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := GetUserID(c)
		if !ok {
			key = "ip:" + c.ClientIP()
		}

		var (
			allowed   bool
			remaining int
		)
		if rl.remote != nil {
			var err error
			allowed, remaining, err = rl.remote.Allow(c.Request.Context(), key)
			if err != nil {
				// fail open
				logger.WarnCtx(c.Request.Context(), "rate limiter unavailable", zap.Error(err))
				allowed, remaining = true, rl.config.Burst-1
			}
		} else {
			allowed, remaining = rl.local.Allow(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerSecond))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.Error("TOO_MANY_REQUESTS", "Rate limit exceeded. Please retry after 1 second(s)."))
			return
		}
		c.Next()
	}
}

// Stop releases the local limiter's cleanup loop
func (rl *RateLimiter) Stop() {
	if rl.local != nil {
		rl.local.Stop()
	}
}
