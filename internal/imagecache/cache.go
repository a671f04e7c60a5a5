// Package imagecache caches byte content fetched from remote URLs, keyed by
// a deterministic hash of the URL, bounded by total size and per-entry age,
// self-evicting.
package imagecache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/errors"
	"github.com/mvirtane/imagevault/internal/ledger"
	"github.com/mvirtane/imagevault/internal/logging"
	"github.com/mvirtane/imagevault/internal/observability/metrics"
)

const (
	// DefaultMaxSize bounds the total size of cached files.
	DefaultMaxSize = 100 * 1024 * 1024 // 100 MiB

	// DefaultCleanupRatio is the fraction of MaxSize that cleanup shrinks
	// the cache down to, leaving headroom so the next insert does not
	// immediately re-trigger cleanup.
	DefaultCleanupRatio = 0.8

	// DefaultMaxAge is the age past which an entry is treated as expired.
	DefaultMaxAge = 7 * 24 * time.Hour

	// memorySweepInterval is how often the in-memory layer drops expired
	// entries on its own.
	memorySweepInterval = 10 * time.Minute
)

// Config holds the tunables of the cache.
type Config struct {
	MaxSize      int64         // maximum total size in bytes
	CleanupRatio float64       // cleanup target as a fraction of MaxSize
	MaxAge       time.Duration // per-entry expiry
	Debug        bool          // enable debug logging
}

// DefaultConfig returns the cache defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:      DefaultMaxSize,
		CleanupRatio: DefaultCleanupRatio,
		MaxAge:       DefaultMaxAge,
	}
}

// Stats is a point-in-time view of the cache aggregates.
type Stats struct {
	TotalSize   int64
	ImageCount  int
	LastCleanup time.Time
}

// Cache is the remote image cache. It owns its own namespace of ledger keys
// and content files and never touches store-owned files.
type Cache struct {
	store   ledger.Interface
	dir     *contentdir.Directory
	memory  *gocache.Cache
	metrics *metrics.ImageCacheMetrics
	logger  *slog.Logger
	debug   bool

	maxSize      int64
	cleanupRatio float64
	maxAge       time.Duration

	now func() time.Time

	// metaMu serializes read-modify-write of the metadata singleton within
	// a single logical operation. Races between separate logical operations
	// remain last-write-wins and are healed by reconciliation on read.
	metaMu sync.Mutex
}

// New creates a cache over the given ledger and content directory.
func New(store ledger.Interface, dir *contentdir.Directory, m *metrics.ImageCacheMetrics, cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.CleanupRatio <= 0 || cfg.CleanupRatio > 1 {
		cfg.CleanupRatio = DefaultCleanupRatio
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}

	return &Cache{
		store:        store,
		dir:          dir,
		memory:       gocache.New(cfg.MaxAge, memorySweepInterval),
		metrics:      m,
		logger:       logging.ForService("imagecache"),
		debug:        cfg.Debug,
		maxSize:      cfg.MaxSize,
		cleanupRatio: cfg.CleanupRatio,
		maxAge:       cfg.MaxAge,
		now:          time.Now,
	}
}

// SetClock overrides the time source, used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// IsCached reports whether a non-expired entry exists whose referenced file
// exists on disk. Any other condition purges the stale entry as a side
// effect and returns false.
func (c *Cache) IsCached(url string) bool {
	entry := c.lookup(CacheKey(url))
	if entry == nil {
		return false
	}

	if c.expired(entry) {
		if c.debug && c.logger != nil {
			c.logger.Debug("Purging expired cache entry",
				"cache_key", entry.CacheKey,
				"cached_at_millis", entry.CachedAtMillis)
		}
		c.purge(entry)
		if c.metrics != nil {
			c.metrics.IncrementExpirations()
		}
		return false
	}

	if !c.dir.Exists(entry.LocalPath) {
		c.logger.Warn("Cached file missing on disk, dropping entry",
			"cache_key", entry.CacheKey)
		c.purge(entry)
		return false
	}

	return true
}

// CachedPath returns the local path for url if it is cached, without any
// implicit fetch. The boolean reports whether the path is usable.
func (c *Cache) CachedPath(url string) (string, bool) {
	if !c.IsCached(url) {
		return "", false
	}
	entry := c.lookup(CacheKey(url))
	if entry == nil {
		return "", false
	}
	return entry.LocalPath, true
}

// CacheImage returns the local path for url, downloading and recording a new
// entry on a miss. A failed download records nothing and returns the error.
// If the insert pushes the total size past the maximum, cleanup runs before
// returning.
func (c *Cache) CacheImage(ctx context.Context, url string) (string, error) {
	if path, ok := c.CachedPath(url); ok {
		if c.metrics != nil {
			c.metrics.IncrementCacheHits()
		}
		return path, nil
	}
	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}

	key := CacheKey(url)

	start := c.now()
	path, size, err := c.dir.Ingest(ctx, key, url)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncrementDownloadErrors()
		}
		return "", errors.New(err).
			Category(errors.CategoryImageCache).
			NetworkContext(url, 0).
			Timing("cache-download", time.Since(start)).
			Build()
	}
	if c.metrics != nil {
		c.metrics.IncrementImageDownloads()
		c.metrics.ObserveDownloadDuration(time.Since(start).Seconds())
	}

	entry := &CachedEntry{
		CacheKey:       key,
		LocalPath:      path,
		SizeBytes:      size,
		CachedAtMillis: c.now().UnixMilli(),
		OriginalURL:    url,
	}

	var total int64
	err = c.updateMeta(func(meta *CacheMetadata) error {
		entry.Sequence = meta.NextSequence
		meta.NextSequence++

		// Write-then-index: the entry record is committed before the
		// aggregate so a crash in between leaves a recoverable state.
		if err := ledger.SetJSON(c.store, entryKey(key), entry); err != nil {
			return err
		}

		meta.TotalSize += size
		meta.ImageCount++
		total = meta.TotalSize
		return nil
	})
	if err != nil {
		// The downloaded file must not stay referenced by nothing.
		_ = c.dir.Delete(path)
		return "", err
	}

	c.memory.SetDefault(key, entry)
	c.publishGauges()

	if total > c.maxSize {
		if err := c.CleanupCache(); err != nil {
			c.logger.Warn("Cache cleanup after insert failed", "error", err)
		}
	}

	return path, nil
}

// ResolveImage returns a displayable URI for source. Local paths and inline
// data URIs are returned unchanged; remote URLs go through the cache, and on
// any cache failure the original URL is returned so callers degrade to
// re-fetching the remote resource directly.
func (c *Cache) ResolveImage(ctx context.Context, source string) string {
	if contentdir.KindOf(source) != contentdir.SourceRemote {
		return source
	}

	path, err := c.CacheImage(ctx, source)
	if err != nil {
		if c.debug && c.logger != nil {
			c.logger.Debug("Falling back to original URL after cache failure",
				"error", err)
		}
		return source
	}
	return path
}

// RemoveFromCache deletes the file and ledger entry for url and decrements
// the aggregate counters, clamped at zero to tolerate double-removal.
func (c *Cache) RemoveFromCache(url string) error {
	entry := c.lookup(CacheKey(url))
	if entry == nil {
		return nil
	}
	return c.purge(entry)
}

// CacheStats returns the tracked aggregates.
func (c *Cache) CacheStats() (Stats, error) {
	meta, err := c.loadMeta()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalSize:  meta.TotalSize,
		ImageCount: meta.ImageCount,
	}
	if meta.LastCleanupMillis > 0 {
		stats.LastCleanup = time.UnixMilli(meta.LastCleanupMillis)
	}
	return stats, nil
}

// Clear removes every cache entry, its file, and resets the metadata.
func (c *Cache) Clear() error {
	entries, err := c.listEntries()
	if err != nil {
		return err
	}
	for i := range entries {
		if err := c.purge(&entries[i]); err != nil {
			return err
		}
	}
	c.memory.Flush()
	return c.updateMeta(func(meta *CacheMetadata) error {
		meta.TotalSize = 0
		meta.ImageCount = 0
		return nil
	})
}

// lookup fetches an entry from the memory layer or the ledger. A ledger
// value that fails to parse is dropped rather than surfaced.
func (c *Cache) lookup(key string) *CachedEntry {
	if value, ok := c.memory.Get(key); ok {
		if entry, ok := value.(*CachedEntry); ok {
			return entry
		}
	}

	raw, err := c.store.Get(entryKey(key))
	if err != nil {
		c.logger.Warn("Failed to read cache entry", "cache_key", key, "error", err)
		return nil
	}
	if raw == nil {
		return nil
	}

	var entry CachedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("Dropping corrupted cache entry", "cache_key", key, "error", err)
		_ = c.store.Remove(entryKey(key))
		return nil
	}

	c.memory.SetDefault(key, &entry)
	return &entry
}

// expired reports whether the entry is older than the configured maximum age.
func (c *Cache) expired(entry *CachedEntry) bool {
	age := c.now().Sub(time.UnixMilli(entry.CachedAtMillis))
	return age > c.maxAge
}

// purge removes an entry's file, its ledger record, and its share of the
// aggregates. Counters are clamped at zero to tolerate double-removal.
func (c *Cache) purge(entry *CachedEntry) error {
	if err := c.dir.Delete(entry.LocalPath); err != nil {
		return err
	}
	if err := c.store.Remove(entryKey(entry.CacheKey)); err != nil {
		return err
	}
	c.memory.Delete(entry.CacheKey)

	err := c.updateMeta(func(meta *CacheMetadata) error {
		meta.TotalSize -= entry.SizeBytes
		if meta.TotalSize < 0 {
			meta.TotalSize = 0
		}
		meta.ImageCount--
		if meta.ImageCount < 0 {
			meta.ImageCount = 0
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.publishGauges()
	return nil
}

// loadMeta reads the metadata singleton, returning zero values when absent
// or corrupted.
func (c *Cache) loadMeta() (CacheMetadata, error) {
	var meta CacheMetadata
	found, err := ledger.GetJSON(c.store, metaKey, &meta)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryLedger) {
			c.logger.Warn("Cache metadata corrupted, resetting", "error", err)
			return CacheMetadata{}, nil
		}
		return CacheMetadata{}, err
	}
	if !found {
		return CacheMetadata{}, nil
	}
	return meta, nil
}

// updateMeta performs a read-modify-write of the metadata singleton.
func (c *Cache) updateMeta(mutate func(*CacheMetadata) error) error {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	meta, err := c.loadMeta()
	if err != nil {
		return err
	}
	if err := mutate(&meta); err != nil {
		return err
	}
	return ledger.SetJSON(c.store, metaKey, &meta)
}

// publishGauges pushes the current aggregates to the metrics instruments.
func (c *Cache) publishGauges() {
	if c.metrics == nil {
		return
	}
	meta, err := c.loadMeta()
	if err != nil {
		return
	}
	c.metrics.SetCacheSize(float64(meta.TotalSize))
	c.metrics.SetCacheEntries(float64(meta.ImageCount))
}
