package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"report-tables/models"
	"report-tables/utils"
)

// Cache keeps extraction results keyed by extractor name and a SHA-256 of the
// source bytes. It holds at most max entries, evicting the least recently used.
// Tables are copied on the way in and out so callers never share rows.
type Cache struct {
	lru *lru.Cache[string, []models.RawTable]
}

// NewCache creates a Cache holding up to max entries. max < 1 means 1.
func NewCache(max int) *Cache {
	if max < 1 {
		max = 1
	}
	l, err := lru.New[string, []models.RawTable](max)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Cache{lru: l}
}

// Key derives the cache key for a source.
func Key(extractor string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(extractor))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached tables for key.
func (c *Cache) Get(key string) ([]models.RawTable, bool) {
	tables, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneTables(tables), true
}

// Put stores a copy of tables under key.
func (c *Cache) Put(key string, tables []models.RawTable) {
	c.lru.Add(key, cloneTables(tables))
}

// Invalidate drops one entry.
func (c *Cache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cloneTables(in []models.RawTable) []models.RawTable {
	out := make([]models.RawTable, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// CachedExtractor puts a Cache in front of another Extractor.
type CachedExtractor struct {
	inner  Extractor
	cache  *Cache
	logger *utils.Logger
}

// NewCachedExtractor wraps inner with cache.
func NewCachedExtractor(inner Extractor, cache *Cache, logger *utils.Logger) *CachedExtractor {
	return &CachedExtractor{inner: inner, cache: cache, logger: logger}
}

func (ce *CachedExtractor) Name() string { return ce.inner.Name() }

// Extract serves repeated sources from the cache. Errors are not cached.
func (ce *CachedExtractor) Extract(ctx context.Context, data []byte) ([]models.RawTable, error) {
	key := Key(ce.inner.Name(), data)
	if tables, ok := ce.cache.Get(key); ok {
		ce.logger.Debug("[cache] hit %s:%s", ce.inner.Name(), key[:12])
		return tables, nil
	}

	tables, err := ce.inner.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	ce.cache.Put(key, tables)
	ce.logger.Debug("[cache] stored %d tables for %s:%s", len(tables), ce.inner.Name(), key[:12])
	return tables, nil
}
