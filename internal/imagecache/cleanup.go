// cleanup.go - size-based eviction for the remote image cache
package imagecache

import (
	"encoding/json"
	"sort"
)

// listEntries parses every cache entry from the ledger. Entries that fail to
// parse are dropped from the ledger rather than aborting the listing.
func (c *Cache) listEntries() ([]CachedEntry, error) {
	raw, err := c.store.List(entryKeyPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]CachedEntry, 0, len(raw))
	for i := range raw {
		var entry CachedEntry
		if err := json.Unmarshal([]byte(raw[i].Value), &entry); err != nil {
			c.logger.Warn("Dropping corrupted cache entry during listing",
				"key", raw[i].Key,
				"error", err)
			_ = c.store.Remove(raw[i].Key)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CleanupCache evicts the oldest entries until the total size is at or below
// the cleanup target (cleanupRatio * maxSize). Eviction is by cache
// timestamp, oldest first; ties fall back to insertion order. The target
// leaves headroom so the next insert does not immediately re-trigger
// cleanup.
func (c *Cache) CleanupCache() error {
	entries, err := c.listEntries()
	if err != nil {
		return err
	}

	// The tracked total must equal the sum over live entries. If the check
	// fails the aggregates are recomputed from scratch before evicting.
	var actualTotal int64
	for i := range entries {
		actualTotal += entries[i].SizeBytes
	}
	meta, err := c.loadMeta()
	if err != nil {
		return err
	}
	if meta.TotalSize != actualTotal || meta.ImageCount != len(entries) {
		c.logger.Warn("Cache size accounting drifted, recomputing",
			"tracked_size", meta.TotalSize,
			"actual_size", actualTotal,
			"tracked_count", meta.ImageCount,
			"actual_count", len(entries))
		if err := c.updateMeta(func(m *CacheMetadata) error {
			m.TotalSize = actualTotal
			m.ImageCount = len(entries)
			return nil
		}); err != nil {
			return err
		}
	}

	// Oldest first; stable order on equal timestamps via insertion sequence.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CachedAtMillis != entries[j].CachedAtMillis {
			return entries[i].CachedAtMillis < entries[j].CachedAtMillis
		}
		return entries[i].Sequence < entries[j].Sequence
	})

	target := int64(float64(c.maxSize) * c.cleanupRatio)
	remaining := actualTotal
	evicted := 0

	for i := range entries {
		if remaining <= target {
			break
		}
		if c.debug && c.logger != nil {
			c.logger.Debug("Evicting cache entry",
				"cache_key", entries[i].CacheKey,
				"size_bytes", entries[i].SizeBytes,
				"cached_at_millis", entries[i].CachedAtMillis)
		}
		if err := c.purge(&entries[i]); err != nil {
			return err
		}
		remaining -= entries[i].SizeBytes
		evicted++
		if c.metrics != nil {
			c.metrics.IncrementEvictions()
		}
	}

	if err := c.updateMeta(func(m *CacheMetadata) error {
		m.LastCleanupMillis = c.now().UnixMilli()
		return nil
	}); err != nil {
		return err
	}

	if evicted > 0 {
		c.logger.Info("Cache cleanup finished",
			"evicted", evicted,
			"remaining_size", remaining,
			"target_size", target)
	}
	return nil
}
