// Package cache implements the §4.8 Cache & Lock layer: a disk-backed
// embedding cache, a disk-backed search-result cache, and the cross-process
// sync lock that serializes indexing writers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentmemory/agentmemory/internal/errs"
)

// MaxEmbeddingCacheEntries caps the embedding cache at 200 entries (§4.8).
const MaxEmbeddingCacheEntries = 200

// embeddingCacheEntry is the persisted JSON shape for one cached vector.
type embeddingCacheEntry struct {
	Vector []float32 `json:"vector"`
	Ts     int64     `json:"ts"`
}

// EmbeddingCache is keyed by a sha256 prefix of the embedded text. An
// in-memory golang-lru cache serves hot lookups; every write is also
// flushed to a JSON file on disk, capped at MaxEmbeddingCacheEntries with
// eviction by ts (§4.8) rather than by the LRU's own recency order, so a
// reopened cache evicts the same entries a long-running one would.
type EmbeddingCache struct {
	mu   sync.Mutex
	path string
	hot  *lru.Cache[string, embeddingCacheEntry]

	nowFn func() int64
}

// NewEmbeddingCache opens (or creates empty) the embedding cache file at path.
func NewEmbeddingCache(path string, nowFn func() int64) (*EmbeddingCache, error) {
	hot, err := lru.New[string, embeddingCacheEntry](MaxEmbeddingCacheEntries)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err)
	}
	c := &EmbeddingCache{path: path, hot: hot, nowFn: nowFn}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// KeyFor hashes text to the cache's lookup key.
func KeyFor(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached vector for text, if present.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.hot.Get(KeyFor(text))
	if !ok {
		return nil, false
	}
	return e.Vector, true
}

// Put stores vec for text, evicting the entry with the oldest ts if the
// cache is at capacity, then persists the full entry set to disk.
func (c *EmbeddingCache) Put(text string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := KeyFor(text)
	ts := c.nowFn()
	if _, exists := c.hot.Peek(key); !exists && c.hot.Len() >= MaxEmbeddingCacheEntries {
		c.evictOldestLocked()
	}
	c.hot.Add(key, embeddingCacheEntry{Vector: vec, Ts: ts})
	return c.saveLocked()
}

func (c *EmbeddingCache) evictOldestLocked() {
	var oldestKey string
	var oldestTs int64
	first := true
	for _, k := range c.hot.Keys() {
		e, ok := c.hot.Peek(k)
		if !ok {
			continue
		}
		if first || e.Ts < oldestTs {
			oldestKey, oldestTs = k, e.Ts
			first = false
		}
	}
	if !first {
		c.hot.Remove(oldestKey)
	}
}

// Clear empties the cache and persists the empty state (sync's "cache
// clear" step, §4.9).
func (c *EmbeddingCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hot.Purge()
	return c.saveLocked()
}

// Len returns the current entry count.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hot.Len()
}

func (c *EmbeddingCache) load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries map[string]embeddingCacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt cache file is not fatal; start from empty rather than
		// failing the whole workspace open.
		return nil
	}

	// Insert oldest-first so the hot cache's recency order roughly tracks
	// ts order for any entries an LRU-capacity eviction might later drop
	// before explicit ts-based eviction gets a chance to run.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return entries[keys[i]].Ts < entries[keys[j]].Ts })
	for _, k := range keys {
		c.hot.Add(k, entries[k])
	}
	return nil
}

func (c *EmbeddingCache) saveLocked() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	entries := make(map[string]embeddingCacheEntry, c.hot.Len())
	for _, k := range c.hot.Keys() {
		if e, ok := c.hot.Peek(k); ok {
			entries[k] = e
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	return os.WriteFile(c.path, data, 0o644)
}
