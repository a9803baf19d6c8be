// Package dedup suppresses accidental duplicate user actions. The guard is
// advisory: it catches rapid repeat taps on the same rendered message, not
// concurrent requests from different devices.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard admits or rejects inbound actions. An action is admitted only if no
// identical (user, signature) pair was admitted within the window; rejected
// actions must be dropped silently by the caller.
type Guard interface {
	Admit(ctx context.Context, userID, signature string, window time.Duration) (bool, error)
}

// NopGuard admits everything.
type NopGuard struct{}

func (NopGuard) Admit(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

// MemoryGuard keeps recently admitted pairs in memory. Entries older than
// twice the window are reclaimed lazily on each call.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryGuard creates a memory guard. A nil clock defaults to time.Now.
func NewMemoryGuard(clock func() time.Time) *MemoryGuard {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryGuard{
		seen: make(map[string]time.Time),
		now:  clock,
	}
}

func (g *MemoryGuard) Admit(_ context.Context, userID, signature string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, at := range g.seen {
		if now.Sub(at) > 2*window {
			delete(g.seen, key)
		}
	}

	key := userID + "\x00" + signature
	if at, ok := g.seen[key]; ok && now.Sub(at) < window {
		return false, nil
	}
	g.seen[key] = now
	return true, nil
}

// RedisGuard records admitted pairs in Redis with the window as TTL, so
// expiry needs no reclamation of its own.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) Admit(ctx context.Context, userID, signature string, window time.Duration) (bool, error) {
	key := "dedup:" + userID + ":" + signature
	ok, err := g.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
