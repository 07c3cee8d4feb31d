package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentmemory/agentmemory/internal/errs"
)

// MaxSearchCacheEntries caps the search-result cache at 50 entries (§4.8).
const MaxSearchCacheEntries = 50

// SearchCacheTTLSeconds is the staleness window for a cached search result.
const SearchCacheTTLSeconds = 5 * 60

// SearchCacheKey is the logical identity of one cached query (§4.8:
// "sha256-prefix of {queryText, topK, filter}").
type SearchCacheKey struct {
	QueryText string
	TopK      int
	Filter    string
}

func (k SearchCacheKey) hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s", k.QueryText, k.TopK, k.Filter)))
	return hex.EncodeToString(sum[:])[:16]
}

type searchCacheEntry struct {
	Results json.RawMessage `json:"results"`
	Ts      int64           `json:"ts"`
}

// SearchCache is a disk-backed, TTL-expiring, size-capped cache of
// serialized search results.
type SearchCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]searchCacheEntry
	nowFn   func() int64
}

// NewSearchCache opens (or creates empty) the search-result cache file at path.
func NewSearchCache(path string, nowFn func() int64) (*SearchCache, error) {
	c := &SearchCache{path: path, entries: map[string]searchCacheEntry{}, nowFn: nowFn}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get unmarshals the cached results for key into dst, returning ok=false on
// a miss or an entry older than SearchCacheTTLSeconds.
func (c *SearchCache) Get(key SearchCacheKey, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key.hash()]
	now := c.nowFn()
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if now-e.Ts > SearchCacheTTLSeconds {
		return false, nil
	}
	if err := json.Unmarshal(e.Results, dst); err != nil {
		return false, errs.Wrap(errs.CodeInternal, err)
	}
	return true, nil
}

// Put serializes results and stores them under key, evicting the oldest
// entry if the cache is at capacity.
func (c *SearchCache) Put(key SearchCacheKey, results any) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := key.hash()
	ts := c.nowFn()
	if _, exists := c.entries[hash]; !exists && len(c.entries) >= MaxSearchCacheEntries {
		c.evictOldestLocked()
	}
	c.entries[hash] = searchCacheEntry{Results: raw, Ts: ts}
	return c.saveLocked()
}

func (c *SearchCache) evictOldestLocked() {
	var oldestKey string
	var oldestTs int64
	first := true
	for k, e := range c.entries {
		if first || e.Ts < oldestTs {
			oldestKey, oldestTs = k, e.Ts
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Clear empties the cache and persists the empty state.
func (c *SearchCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]searchCacheEntry{}
	return c.saveLocked()
}

// Len returns the current entry count.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SearchCache) load() error {
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
	var entries map[string]searchCacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	c.entries = entries
	return nil
}

func (c *SearchCache) saveLocked() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	return os.WriteFile(c.path, data, 0o644)
}
