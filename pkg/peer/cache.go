package peer

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReadinessCache remembers which pull peers were last seen healthy, so
// a freshly restarted node does not have to treat every configured pull
// peer as live until it has probed each one itself. Nil is a valid,
// always-healthy cache (no Redis configured).
type ReadinessCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReadinessCache dials addr lazily (go-redis connects on first
// command); an empty addr disables the cache entirely.
func NewReadinessCache(addr string) *ReadinessCache {
	if addr == "" {
		return nil
	}
	return &ReadinessCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: 5 * time.Minute,
	}
}

func (c *ReadinessCache) key(peerURL string) string {
	return "fabric:peer:healthy:" + peerURL
}

// MarkHealthy records that peerURL answered its last request.
func (c *ReadinessCache) MarkHealthy(ctx context.Context, peerURL string) {
	if c == nil {
		return
	}
	c.rdb.Set(ctx, c.key(peerURL), "1", c.ttl)
}

// MarkUnhealthy evicts peerURL from the cache so the next readiness
// check treats it as unknown rather than stale-healthy.
func (c *ReadinessCache) MarkUnhealthy(ctx context.Context, peerURL string) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, c.key(peerURL))
}

// IsHealthy reports peerURL's last known state. A cache miss or a nil
// cache both read as healthy: readiness is a hint for pull-peer
// ordering, never a gate on correctness.
func (c *ReadinessCache) IsHealthy(ctx context.Context, peerURL string) bool {
	if c == nil {
		return true
	}
	v, err := c.rdb.Get(ctx, c.key(peerURL)).Result()
	if err != nil {
		return true
	}
	return v == "1"
}
