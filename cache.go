package wanikache

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// maxEntrySize is the per-entry serialized size cap. Larger entries are
	// skipped rather than cached.
	maxEntrySize = 500 * 1024

	// evictionHeadroom scales how many bytes eviction frees relative to the
	// incoming entry, leaving room for neighboring writes.
	evictionHeadroom = 1.5
)

// CacheStore layers TTL expiry, a per-entry size cap and LRU eviction on top
// of a raw Store medium. The whole set-with-eviction path runs under one
// mutex so a concurrent writer cannot interleave between eviction and the
// retried write. Safe for concurrent use.
type CacheStore struct {
	mu      sync.Mutex
	store   Store
	now     func() time.Time
	logger  Logger
	debug   *DebugConfig
	metrics *MetricsCollector
}

// NewCacheStore wraps a raw Store with the caching policy layer.
func NewCacheStore(store Store) *CacheStore {
	return &CacheStore{
		store: store,
		now:   time.Now,
	}
}

// Get returns the entry for key if present and unexpired. Expired and corrupt
// entries are deleted eagerly and reported as absent. A successful read
// refreshes the entry's LastAccessed timestamp.
func (c *CacheStore) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.load(key)
	if !ok {
		return nil, false
	}

	if !entry.Fresh(c.now()) {
		_ = c.store.Delete(key)
		return nil, false
	}

	c.touch(key, entry)
	return entry, true
}

// GetStale returns the entry for key regardless of expiry. Used for
// conditional revalidation and stale-while-revalidate reads; corrupt entries
// are still deleted and reported as absent.
func (c *CacheStore) GetStale(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.load(key)
	if !ok {
		return nil, false
	}

	c.touch(key, entry)
	return entry, true
}

// Set stores entry under key. Oversized entries are skipped. On quota
// pressure it evicts least-recently-used entries until enough space is freed,
// then retries the write once; if the retry still fails the write is
// abandoned and the caller proceeds uncached.
func (c *CacheStore) Set(key string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if len(raw) > maxEntrySize {
		if c.debugEnabled() && c.debug.LogCache {
			c.logger.Warn("Entry exceeds size cap, skipping cache", "key", key, "size", len(raw))
		}
		c.metrics.RecordCacheSkip("oversize")
		return
	}

	err = c.store.Write(key, raw)
	if !errors.Is(err, ErrQuotaExceeded) {
		return
	}

	freed := c.evict(int64(float64(len(raw)) * evictionHeadroom))
	if c.debugEnabled() && c.debug.LogCache {
		c.logger.Info("Evicted cache entries under quota pressure", "key", key, "freedBytes", freed)
	}

	if err := c.store.Write(key, raw); err != nil {
		c.metrics.RecordCacheSkip("quota")
	}
}

// Delete removes the entry for key.
func (c *CacheStore) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.store.Delete(key)
}

// Keys lists every stored key.
func (c *CacheStore) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys()
	if err != nil {
		return nil
	}
	return keys
}

// Clear drops every entry.
func (c *CacheStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.store.Clear()
}

// ClearSuffix drops every entry whose key carries the given suffix. Keys for
// one account share a token-derived suffix, so this implements per-account
// clearing.
func (c *CacheStore) ClearSuffix(suffix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys()
	if err != nil {
		return
	}
	for _, key := range keys {
		if strings.HasSuffix(key, suffix) {
			_ = c.store.Delete(key)
		}
	}
}

// Stats reports entry count, total serialized bytes and the oldest
// LastAccessed timestamp across entries.
func (c *CacheStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{}
	keys, err := c.store.Keys()
	if err != nil {
		return stats
	}

	for _, key := range keys {
		raw, ok, err := c.store.Read(key)
		if err != nil || !ok {
			continue
		}
		stats.Entries++
		stats.TotalBytes += int64(len(raw))

		var entry CacheEntry
		if json.Unmarshal(raw, &entry) != nil {
			continue
		}
		accessed := entry.LastAccessed
		if accessed == 0 {
			accessed = entry.Timestamp
		}
		t := time.UnixMilli(accessed)
		if stats.OldestAccess.IsZero() || t.Before(stats.OldestAccess) {
			stats.OldestAccess = t
		}
	}
	return stats
}

// load reads and decodes an entry, deleting it on corruption. Caller holds
// the mutex.
func (c *CacheStore) load(key string) (*CacheEntry, bool) {
	raw, ok, err := c.store.Read(key)
	if err != nil || !ok {
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = c.store.Delete(key)
		c.metrics.RecordCacheCorruption()
		return nil, false
	}
	return &entry, true
}

// touch refreshes LastAccessed. The write-back is best effort; a full medium
// must not turn a read into a failure.
func (c *CacheStore) touch(key string, entry *CacheEntry) {
	entry.LastAccessed = c.now().UnixMilli()
	if raw, err := json.Marshal(entry); err == nil {
		_ = c.store.Write(key, raw)
	}
}

type evictionCandidate struct {
	key      string
	accessed int64
	size     int64
}

// evict removes least-recently-used entries until at least needed bytes are
// freed or the store is empty, returning the bytes actually freed. Caller
// holds the mutex.
func (c *CacheStore) evict(needed int64) int64 {
	keys, err := c.store.Keys()
	if err != nil {
		return 0
	}

	candidates := make([]evictionCandidate, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := c.store.Read(key)
		if err != nil || !ok {
			continue
		}

		cand := evictionCandidate{key: key, size: int64(len(raw))}
		var entry CacheEntry
		if json.Unmarshal(raw, &entry) == nil {
			cand.accessed = entry.LastAccessed
			if cand.accessed == 0 {
				cand.accessed = entry.Timestamp
			}
		}
		candidates = append(candidates, cand)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].accessed < candidates[j].accessed
	})

	var freed int64
	for _, cand := range candidates {
		if freed >= needed {
			break
		}
		if err := c.store.Delete(cand.key); err != nil {
			continue
		}
		freed += cand.size
		c.metrics.RecordCacheEviction()
	}
	return freed
}

func (c *CacheStore) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}
