package access

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/quorix-labs/botlink/internal/domain"
)

// CachedGate memoizes verdicts from an inner gate. Grants and denials are
// cached for the TTL; identity-service outages are never cached, so a flaky
// backend does not pin errors.
type CachedGate struct {
	inner Gate
	lru   *expirable.LRU[string, error]
}

// NewCachedGate wraps inner with an expiring verdict cache.
func NewCachedGate(inner Gate, size int, ttl time.Duration) *CachedGate {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedGate{
		inner: inner,
		lru:   expirable.NewLRU[string, error](size, nil, ttl),
	}
}

func (g *CachedGate) Require(ctx context.Context, userID, botID string, minRole domain.Role) error {
	key := userID + ":" + botID + ":" + string(minRole)
	if verdict, found := g.lru.Get(key); found {
		return verdict
	}

	verdict := g.inner.Require(ctx, userID, botID, minRole)
	if verdict == nil || errors.Is(verdict, domain.ErrAccessDenied) {
		g.lru.Add(key, verdict)
	}
	return verdict
}

// Invalidate drops every cached verdict. Role changes upstream take effect
// on the next check.
func (g *CachedGate) Invalidate() {
	g.lru.Purge()
}
