package imagecache_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/httpclient"
	"github.com/mvirtane/imagevault/internal/imagecache"
	"github.com/mvirtane/imagevault/internal/ledger"
)

// memoryLedger is an in-memory ledger.Interface for cache tests.
type memoryLedger struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{data: make(map[string]string)}
}

func (m *memoryLedger) Open() error  { return nil }
func (m *memoryLedger) Close() error { return nil }

func (m *memoryLedger) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

func (m *memoryLedger) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value)
	return nil
}

func (m *memoryLedger) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryLedger) List(prefix string) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	entries := make([]ledger.Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, ledger.Entry{Key: key, Value: m.data[key]})
	}
	return entries, nil
}

// fakeClock is a settable time source shared by the cache and the tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type cacheFixture struct {
	cache  *imagecache.Cache
	store  *memoryLedger
	dir    *contentdir.Directory
	clock  *fakeClock
	server *httptest.Server
	hits   *atomic.Int64
}

// newCacheFixture wires a cache over an in-memory ledger, a temp content
// directory, and a counting test server that serves 400 bytes per request.
func newCacheFixture(t *testing.T, cfg imagecache.Config) *cacheFixture {
	t.Helper()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(bytes.Repeat([]byte{0x1F}, 400))
	}))
	t.Cleanup(server.Close)

	client := httpclient.New(nil)
	t.Cleanup(client.Close)

	dir, err := contentdir.New(t.TempDir(), client)
	require.NoError(t, err)

	store := newMemoryLedger()
	clock := newFakeClock()

	cache := imagecache.New(store, dir, nil, cfg)
	cache.SetClock(clock.Now)
	dir.SetClock(clock.Now)

	return &cacheFixture{
		cache:  cache,
		store:  store,
		dir:    dir,
		clock:  clock,
		server: server,
		hits:   &hits,
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	base := imagecache.CacheKey("http://example.com/a.png")

	assert.Equal(t, base, imagecache.CacheKey("HTTP://Example.COM/a.png"))
	assert.Equal(t, base, imagecache.CacheKey("  http://example.com/a.png  "))
	assert.Equal(t, base, imagecache.CacheKey("http://example.com/a.png#section"))

	assert.NotEqual(t, base, imagecache.CacheKey("http://example.com/b.png"))
	assert.NotEqual(t, base, imagecache.CacheKey("http://example.com/a.png?v=2"))
}

func TestCacheImageDownloadsOnceThenHits(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := f.server.URL + "/bird.png"

	path1, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, f.dir.Exists(path1))
	assert.Equal(t, int64(1), f.hits.Load())

	path2, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int64(1), f.hits.Load())
}

func TestIsCachedUnknownURL(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	assert.False(t, f.cache.IsCached("http://example.com/never-seen.png"))
}

func TestEntryExpiresAfterMaxAge(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := f.server.URL + "/old.png"

	path, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, f.cache.IsCached(url))

	f.clock.Advance(8 * 24 * time.Hour)

	assert.False(t, f.cache.IsCached(url))
	assert.False(t, f.dir.Exists(path))

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImageCount)
	assert.Equal(t, int64(0), stats.TotalSize)
}

func TestCleanupEvictsOldestFirst(t *testing.T) {
	// Three 400 byte downloads against a 1000 byte limit: the third insert
	// pushes the total to 1200 and cleanup shrinks it to the 800 byte target
	// by evicting the oldest entry only.
	f := newCacheFixture(t, imagecache.Config{
		MaxSize:      1000,
		CleanupRatio: 0.8,
		MaxAge:       imagecache.DefaultMaxAge,
	})

	urlA := f.server.URL + "/a.png"
	urlB := f.server.URL + "/b.png"
	urlC := f.server.URL + "/c.png"

	_, err := f.cache.CacheImage(context.Background(), urlA)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.cache.CacheImage(context.Background(), urlB)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.cache.CacheImage(context.Background(), urlC)
	require.NoError(t, err)

	assert.False(t, f.cache.IsCached(urlA))
	assert.True(t, f.cache.IsCached(urlB))
	assert.True(t, f.cache.IsCached(urlC))

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ImageCount)
	assert.Equal(t, int64(800), stats.TotalSize)
	assert.False(t, stats.LastCleanup.IsZero())
}

func TestCleanupBreaksTimestampTiesByInsertionOrder(t *testing.T) {
	// All three entries share one timestamp, so eviction order falls back
	// to insertion order: the first insert goes first.
	f := newCacheFixture(t, imagecache.Config{
		MaxSize:      1000,
		CleanupRatio: 0.8,
		MaxAge:       imagecache.DefaultMaxAge,
	})

	urlA := f.server.URL + "/a.png"
	urlB := f.server.URL + "/b.png"
	urlC := f.server.URL + "/c.png"

	_, err := f.cache.CacheImage(context.Background(), urlA)
	require.NoError(t, err)
	_, err = f.cache.CacheImage(context.Background(), urlB)
	require.NoError(t, err)
	_, err = f.cache.CacheImage(context.Background(), urlC)
	require.NoError(t, err)

	assert.False(t, f.cache.IsCached(urlA))
	assert.True(t, f.cache.IsCached(urlB))
	assert.True(t, f.cache.IsCached(urlC))

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ImageCount)
	assert.Equal(t, int64(800), stats.TotalSize)
}

func TestCleanupRecomputesDriftedAccounting(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := f.server.URL + "/drift.png"

	_, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)

	// Corrupt the tracked aggregate out from under the cache.
	require.NoError(t, f.store.Set("cache/meta", []byte(`{"totalSize":999999,"imageCount":42,"nextSequence":1}`)))

	require.NoError(t, f.cache.CleanupCache())

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ImageCount)
	assert.Equal(t, int64(400), stats.TotalSize)
}

func TestRemoveFromCache(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := f.server.URL + "/gone.png"

	path, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, f.cache.RemoveFromCache(url))
	assert.False(t, f.cache.IsCached(url))
	assert.False(t, f.dir.Exists(path))

	// Removing again is a no-op.
	require.NoError(t, f.cache.RemoveFromCache(url))

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImageCount)
	assert.Equal(t, int64(0), stats.TotalSize)
}

func TestResolveImage(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())

	local := "/var/photos/selfie.png"
	assert.Equal(t, local, f.cache.ResolveImage(context.Background(), local))

	inline := "data:image/png;base64,AAAA"
	assert.Equal(t, inline, f.cache.ResolveImage(context.Background(), inline))

	url := f.server.URL + "/resolved.png"
	resolved := f.cache.ResolveImage(context.Background(), url)
	assert.NotEqual(t, url, resolved)
	assert.True(t, f.dir.Exists(resolved))
}

func TestResolveImageFallsBackOnFailure(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer failing.Close()

	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := failing.URL + "/broken.png"

	assert.Equal(t, url, f.cache.ResolveImage(context.Background(), url))
	assert.False(t, f.cache.IsCached(url))
}

func TestClear(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	urlA := f.server.URL + "/a.png"
	urlB := f.server.URL + "/b.png"

	_, err := f.cache.CacheImage(context.Background(), urlA)
	require.NoError(t, err)
	_, err = f.cache.CacheImage(context.Background(), urlB)
	require.NoError(t, err)

	require.NoError(t, f.cache.Clear())

	assert.False(t, f.cache.IsCached(urlA))
	assert.False(t, f.cache.IsCached(urlB))

	entries, err := f.store.List("cache/entry/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImageCount)
	assert.Equal(t, int64(0), stats.TotalSize)
}

func TestCorruptedEntryIsDropped(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := "http://example.com/corrupt.png"
	key := "cache/entry/" + imagecache.CacheKey(url)

	require.NoError(t, f.store.Set(key, []byte("{definitely not json")))

	assert.False(t, f.cache.IsCached(url))

	raw, err := f.store.Get(key)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMissingFilePurgesEntry(t *testing.T) {
	f := newCacheFixture(t, imagecache.DefaultConfig())
	url := f.server.URL + "/vanished.png"

	path, err := f.cache.CacheImage(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, f.dir.Delete(path))

	assert.False(t, f.cache.IsCached(url))

	stats, err := f.cache.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImageCount)
}
