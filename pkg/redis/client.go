package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/config"
	goredis "github.com/redis/go-redis/v9"
)

// Nil is returned by Get on a missing key
const Nil = goredis.Nil

// Config holds Redis client settings
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
}

// DefaultConfig returns local defaults
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// FromAppConfig maps the REDIS_* section
func FromAppConfig(c config.RedisConfig) *Config {
	cfg := DefaultConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.Password = c.Password
	cfg.DB = c.DB
	if c.PoolSize > 0 {
		cfg.PoolSize = c.PoolSize
	}
	cfg.MinIdleConns = c.MinIdleConns
	if c.DialTimeout > 0 {
		cfg.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		cfg.WriteTimeout = c.WriteTimeout
	}
	return cfg
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client is a go-redis client with a named Lua script registry
type Client struct {
	goredis.UniversalClient

	mu      sync.RWMutex
	scripts map[string]*goredis.Script
}

// NewClient connects and pings the server
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err)
	}

	return Wrap(rdb), nil
}

// Wrap adopts an existing client, e.g. one returned by redismock
func Wrap(rdb goredis.UniversalClient) *Client {
	return &Client{
		UniversalClient: rdb,
		scripts:         make(map[string]*goredis.Script),
	}
}

// LoadScript registers src under name and loads it into the script cache.
// It returns the script SHA1.
func (c *Client) LoadScript(ctx context.Context, name, src string) (string, error) {
	script := goredis.NewScript(src)

	c.mu.Lock()
	c.scripts[name] = script
	c.mu.Unlock()

	if err := script.Load(ctx, c.UniversalClient).Err(); err != nil {
		return "", fmt.Errorf("load script %s: %w", name, err)
	}
	return script.Hash(), nil
}

// RegisterScript records src without a round trip; the first EvalShaByName loads it
func (c *Client) RegisterScript(name, src string) string {
	script := goredis.NewScript(src)
	c.mu.Lock()
	c.scripts[name] = script
	c.mu.Unlock()
	return script.Hash()
}

// EvalShaByName runs a registered script by SHA, falling back to EVAL on NOSCRIPT
func (c *Client) EvalShaByName(ctx context.Context, name string, keys []string, args ...any) *goredis.Cmd {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()

	if !ok {
		cmd := goredis.NewCmd(ctx)
		cmd.SetErr(fmt.Errorf("script %q is not registered", name))
		return cmd
	}
	return script.Run(ctx, c.UniversalClient, keys, args...)
}

// HealthCheck pings the server
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
