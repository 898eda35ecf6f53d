package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/redis"
)

const rememberPurchaseScriptName = "remember_purchase"

// rememberPurchaseScript stores ARGV[1] under KEYS[1] unless a value is already
// there, and returns whichever value is stored afterwards.
// KEYS[1] = idempotency key, ARGV[1] = ticket id, ARGV[2] = ttl in ms
const rememberPurchaseScript = `
local existing = redis.call("GET", KEYS[1])
if existing then
	return existing
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return ARGV[1]
`

// IdempotencyKey is the cache key of one (profile, key) purchase
func IdempotencyKey(profileID, key string) string {
	return fmt.Sprintf("purchase:idem:%s:%s", profileID, key)
}

// PurchaseMemo caches which ticket an idempotency key produced. It is a fast
// path in front of the unique (profile_id, idempotency_key) constraint.
type PurchaseMemo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPurchaseMemo(rdb *redis.Client, ttl time.Duration) *PurchaseMemo {
	rdb.RegisterScript(rememberPurchaseScriptName, rememberPurchaseScript)
	return &PurchaseMemo{rdb: rdb, ttl: ttl}
}

// Lookup returns the remembered ticket id, or "" when the key is unknown
func (m *PurchaseMemo) Lookup(ctx context.Context, profileID, key string) (string, error) {
	id, err := m.rdb.Get(ctx, IdempotencyKey(profileID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup purchase key: %w", err)
	}
	return id, nil
}

// Remember records ticketID for the key and returns the id that owns it,
// which differs from ticketID when another request got there first
func (m *PurchaseMemo) Remember(ctx context.Context, profileID, key, ticketID string) (string, error) {
	winner, err := m.rdb.EvalShaByName(ctx, rememberPurchaseScriptName,
		[]string{IdempotencyKey(profileID, key)},
		ticketID, m.ttl.Milliseconds(),
	).Text()
	if err != nil {
		return "", fmt.Errorf("remember purchase key: %w", err)
	}
	return winner, nil
}
