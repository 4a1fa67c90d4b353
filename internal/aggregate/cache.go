package aggregate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
)

// cachedFetcher answers repeated (query, cursor) requests from the cache.
// Only successful pages are stored.
type cachedFetcher[Q, R any] struct {
	next  Fetcher[Q, R]
	cache *kv.TypedKV[Page[R]]
	key   func(Q) string
	ttl   time.Duration
	log   zerolog.Logger
}

// Cached wraps next with a response cache in namespace. key must map each
// query to a stable string.
func Cached[Q, R any](next Fetcher[Q, R], store kv.KV, namespace string, key func(Q) string, ttl time.Duration, log zerolog.Logger) Fetcher[Q, R] {
	return &cachedFetcher[Q, R]{
		next:  next,
		cache: kv.Scoped[Page[R]](store, namespace),
		key:   key,
		ttl:   ttl,
		log:   log,
	}
}

func (c *cachedFetcher[Q, R]) Fetch(ctx context.Context, q Q, cursor Cursor) (Page[R], error) {
	key := c.key(q) + "@" + cursor.Token

	if page, err := c.cache.Get(ctx, key); err == nil {
		c.log.Debug().Str("key", key).Msg("cache hit")
		return page, nil
	}

	page, err := c.next.Fetch(ctx, q, cursor)
	if err != nil {
		return page, err
	}

	if err := c.cache.SetTTL(ctx, key, page, c.ttl); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache store failed")
	}
	return page, nil
}
