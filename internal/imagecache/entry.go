package imagecache

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// metaKey is the ledger key of the cache metadata singleton.
	metaKey = "cache/meta"

	// entryKeyPrefix namespaces all cache entry keys in the ledger.
	entryKeyPrefix = "cache/entry/"
)

// CachedEntry describes one cached remote image.
type CachedEntry struct {
	CacheKey       string `json:"cacheKey"`
	LocalPath      string `json:"localPath"`
	SizeBytes      int64  `json:"sizeBytes"`
	CachedAtMillis int64  `json:"cachedAtMillis"`
	OriginalURL    string `json:"originalUrl"`
	// Sequence records insertion order so eviction can break timestamp
	// ties deterministically.
	Sequence uint64 `json:"sequence"`
}

// CacheMetadata is the singleton aggregate owned exclusively by the cache.
// It is mutated only through the cache's own entry-add and entry-remove
// operations.
type CacheMetadata struct {
	TotalSize         int64  `json:"totalSize"`
	ImageCount        int    `json:"imageCount"`
	LastCleanupMillis int64  `json:"lastCleanupMillis"`
	NextSequence      uint64 `json:"nextSequence"`
}

// CacheKey returns the deterministic cache key for a source URL. The key is
// a 64-bit xxhash of the normalized URL; a local single-tenant cache needs
// no cryptographic strength.
func CacheKey(rawURL string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalizeURL(rawURL)))
}

// normalizeURL canonicalizes a URL so trivially different spellings share a
// cache entry: whitespace trimmed, scheme and host lowercased, fragment
// dropped. Unparseable input is used as-is after trimming.
func normalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}

// entryKey returns the ledger key for a cache key.
func entryKey(cacheKey string) string {
	return entryKeyPrefix + cacheKey
}
