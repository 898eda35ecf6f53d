package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/redis"
)

// SoldOutKey is the flag key for an event
func SoldOutKey(eventID string) string {
	return fmt.Sprintf("event:soldout:%s", eventID)
}

// SoldOutGate remembers events the database reported as sold out so later
// purchases skip the transaction. The flag only ever short-circuits toward
// SoldOut; the database remains authoritative.
type SoldOutGate struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSoldOutGate(rdb *redis.Client, ttl time.Duration) *SoldOutGate {
	return &SoldOutGate{rdb: rdb, ttl: ttl}
}

// IsSoldOut reports whether the flag is set
func (g *SoldOutGate) IsSoldOut(ctx context.Context, eventID string) (bool, error) {
	n, err := g.rdb.Exists(ctx, SoldOutKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check sold out flag: %w", err)
	}
	return n > 0, nil
}

// MarkSoldOut sets the flag with the configured TTL
func (g *SoldOutGate) MarkSoldOut(ctx context.Context, eventID string) error {
	if err := g.rdb.Set(ctx, SoldOutKey(eventID), "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("set sold out flag: %w", err)
	}
	return nil
}
