package fhirpath

import (
	"container/list"
	"sync"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// CompileCache provides thread-safe caching of compiled SQL with LRU
// eviction. Use this in production to avoid recompiling the same
// expression against the same resource type and dialect on every request.
type CompileCache struct {
	mu      sync.RWMutex
	cache   map[cacheKey]*cacheEntry
	lruList *list.List // front = most recently used
	limit   int
	hits    int64
	misses  int64
}

type cacheKey struct {
	expr         string
	resourceType string
	dialect      string
}

type cacheEntry struct {
	key     cacheKey
	result  *CompileResult
	element *list.Element
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Size   int
	Limit  int
	Hits   int64
	Misses int64
}

// NewCompileCache creates a new cache with the given size limit. If limit
// <= 0, the cache is unbounded.
func NewCompileCache(limit int) *CompileCache {
	return &CompileCache{
		cache:   make(map[cacheKey]*cacheEntry),
		lruList: list.New(),
		limit:   limit,
	}
}

// Get retrieves a compiled result from the cache, compiling it if
// necessary. reg is not part of the cache key — callers that swap
// registries between calls for the same expr/resourceType/dialect should
// use separate cache instances.
func (c *CompileCache) Get(expr string, ctx CompileContext, d dialect.Dialect, reg registry.TypeRegistry) (*CompileResult, error) {
	key := cacheKey{expr: expr, resourceType: ctx.ResourceType, dialect: d.Name()}

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.lruList.MoveToFront(entry.element)
		c.hits++
		c.mu.Unlock()
		return entry.result, nil
	}
	c.mu.RUnlock()

	result, err := Compile(expr, ctx, d, reg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(entry.element)
		return entry.result, nil
	}

	c.misses++
	if c.limit > 0 && len(c.cache) >= c.limit {
		c.evictLRU()
	}

	entry := &cacheEntry{key: key, result: result}
	entry.element = c.lruList.PushFront(entry)
	c.cache[key] = entry

	return result, nil
}

// evictLRU removes the least recently used entry. Must be called with the
// write lock held.
func (c *CompileCache) evictLRU() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cacheEntry)
	c.lruList.Remove(oldest)
	delete(c.cache, entry.key)
}

// Clear removes all cached entries.
func (c *CompileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[cacheKey]*cacheEntry)
	c.lruList = list.New()
	c.hits = 0
	c.misses = 0
}

// Size returns the number of cached entries.
func (c *CompileCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns cache performance statistics.
func (c *CompileCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Size: len(c.cache), Limit: c.limit, Hits: c.hits, Misses: c.misses}
}
