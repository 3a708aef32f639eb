package pagecache_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spounge-ai/rediskit/pkg/pagecache"
	"github.com/spounge-ai/rediskit/pkg/store"
)

func newMemory(t *testing.T, opts ...store.MemoryOption) *store.Memory {
	t.Helper()
	kv := store.NewMemory(opts...)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

// countingFetcher returns a fetcher that serves canned content and counts
// its invocations.
func countingFetcher(content string, calls *int) pagecache.Fetcher {
	return func(ctx context.Context, url string) (string, error) {
		*calls++
		return content, nil
	}
}

// TestFetchCachesWithinTTL verifies the second fetch inside the TTL is a
// cache hit: same content, no extra fetcher call, access counter at two.
func TestFetchCachesWithinTTL(t *testing.T) {
	kv := newMemory(t)
	ctx := context.Background()

	calls := 0
	pc := pagecache.New(kv, pagecache.WithFetcher(countingFetcher("page body", &calls)))

	first, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "page body", first)
	assert.Equal(t, 1, calls)

	second, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	count, err := kv.Get(ctx, "count:http://example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), count)
}

// TestFetchCountsPerURL verifies access counters are independent per URL.
func TestFetchCountsPerURL(t *testing.T) {
	kv := newMemory(t)
	ctx := context.Background()

	calls := 0
	pc := pagecache.New(kv, pagecache.WithFetcher(countingFetcher("body", &calls)))

	_, err := pc.Fetch(ctx, "http://a.example")
	require.NoError(t, err)
	_, err = pc.Fetch(ctx, "http://a.example")
	require.NoError(t, err)
	_, err = pc.Fetch(ctx, "http://b.example")
	require.NoError(t, err)

	countA, err := kv.Get(ctx, "count:http://a.example")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), countA)

	countB, err := kv.Get(ctx, "count:http://b.example")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), countB)
}

// TestFetchRefetchesAfterTTL steps the clock past the TTL and checks the
// fetcher runs again while the access counter keeps accumulating.
func TestFetchRefetchesAfterTTL(t *testing.T) {
	now := time.Now()
	kv := newMemory(t, store.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, url string) (string, error) {
		calls++
		return fmt.Sprintf("body v%d", calls), nil
	}
	pc := pagecache.New(kv, pagecache.WithFetcher(fetch))

	first, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "body v1", first)

	now = now.Add(11 * time.Second)

	second, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "body v2", second)
	assert.Equal(t, 2, calls)

	// The access counter does not expire with the content.
	count, err := kv.Get(ctx, "count:http://example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), count)
}

// TestFetchRedisBackend exercises the same TTL cycle against a Redis
// backend, fast-forwarding the server clock.
func TestFetchRedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := store.NewRedis(client)
	ctx := context.Background()

	calls := 0
	pc := pagecache.New(kv, pagecache.WithFetcher(countingFetcher("redis body", &calls)))

	_, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	_, err = pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	srv.FastForward(11 * time.Second)

	_, err = pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	count, err := kv.Get(ctx, "count:http://example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), count)
}

// TestFetchErrorIsSticky verifies a failed fetch is converted to an error
// string that is cached and served verbatim until the TTL runs out.
func TestFetchErrorIsSticky(t *testing.T) {
	kv := newMemory(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, url string) (string, error) {
		calls++
		return "", errors.New("connection refused")
	}
	pc := pagecache.New(kv, pagecache.WithFetcher(fetch))

	first, err := pc.Fetch(ctx, "http://down.example")
	require.NoError(t, err)
	assert.Equal(t, "Error fetching the URL: connection refused", first)

	second, err := pc.Fetch(ctx, "http://down.example")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "the cached error string must be served without refetching")
}

// TestFetchCustomTTL verifies WithTTL controls the content expiration.
func TestFetchCustomTTL(t *testing.T) {
	now := time.Now()
	kv := newMemory(t, store.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	calls := 0
	pc := pagecache.New(kv,
		pagecache.WithFetcher(countingFetcher("body", &calls)),
		pagecache.WithTTL(time.Minute),
	)

	_, err := pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(31 * time.Second)
	_, err = pc.Fetch(ctx, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// TestHTTPFetcherSuccess verifies the default fetcher returns the
// response body for a 2xx status.
func TestHTTPFetcherSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "served content")
	}))
	t.Cleanup(ts.Close)

	fetch := pagecache.NewHTTPFetcher(ts.Client())
	body, err := fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "served content", body)
}

// TestHTTPFetcherBadStatus verifies non-2xx responses come back as
// errors, which Fetch then converts into cached error strings.
func TestHTTPFetcherBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	fetch := pagecache.NewHTTPFetcher(ts.Client())
	_, err := fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	kv := newMemory(t)
	pc := pagecache.New(kv, pagecache.WithFetcher(fetch))
	content, err := pc.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Contains(t, content, "Error fetching the URL:")
	assert.Contains(t, content, "404")
}
