// Package pagecache memoizes URL fetches in a key-value store for a short
// time-to-live, counting every access per URL.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spounge-ai/rediskit/pkg/store"
)

// DefaultTTL is how long fetched content stays cached.
const DefaultTTL = 10 * time.Second

const (
	resultKeyPrefix = "result:"
	countKeyPrefix  = "count:"
)

// Fetcher retrieves the content of a URL.
type Fetcher func(ctx context.Context, url string) (string, error)

// PageCache wraps a Fetcher with store-backed caching and access counting.
// Content lives under "result:<url>" with a TTL; the per-URL access
// counter under "count:<url>" never expires.
type PageCache struct {
	kv     store.Store
	fetch  Fetcher
	ttl    time.Duration
	logger *slog.Logger
}

// Option is a functional option for configuring a PageCache.
type Option func(*PageCache)

// WithTTL overrides the content expiration.
func WithTTL(ttl time.Duration) Option {
	return func(p *PageCache) {
		p.ttl = ttl
	}
}

// WithFetcher replaces the underlying fetch function.
func WithFetcher(fetch Fetcher) Option {
	return func(p *PageCache) {
		p.fetch = fetch
	}
}

// WithLogger sets the logger for cache hits, misses, and fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *PageCache) {
		p.logger = logger
	}
}

// New creates a PageCache on kv. Unless overridden, content expires after
// DefaultTTL and fetches go through a plain HTTP GET.
func New(kv store.Store, opts ...Option) *PageCache {
	p := &PageCache{
		kv:     kv,
		fetch:  NewHTTPFetcher(nil),
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch returns the content of url, serving it from the cache when a live
// entry exists. The access counter for url is incremented on every call,
// hit or miss. On a miss the underlying fetcher runs and its result is
// cached for the TTL; a failed fetch is converted into a descriptive
// error string that is cached and returned exactly like content, so a
// transient failure stays sticky until the entry expires. Only store I/O
// failures surface as errors.
func (p *PageCache) Fetch(ctx context.Context, url string) (string, error) {
	if _, err := p.kv.Incr(ctx, countKeyPrefix+url); err != nil {
		return "", fmt.Errorf("pagecache: count access for %q: %w", url, err)
	}

	cached, err := p.kv.Get(ctx, resultKeyPrefix+url)
	switch {
	case err == nil:
		p.logger.DebugContext(ctx, "page cache hit", slog.String("url", url))
		return string(cached), nil
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("pagecache: read cached result for %q: %w", url, err)
	}

	content, err := p.fetch(ctx, url)
	if err != nil {
		p.logger.WarnContext(ctx, "page fetch failed",
			slog.String("url", url),
			slog.Any("error", err),
		)
		content = fmt.Sprintf("Error fetching the URL: %v", err)
	}

	if err := p.kv.SetEx(ctx, resultKeyPrefix+url, []byte(content), p.ttl); err != nil {
		return "", fmt.Errorf("pagecache: cache result for %q: %w", url, err)
	}
	return content, nil
}
