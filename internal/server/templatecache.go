package server

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/flosch/pongo2/v6"

	"github.com/storefront-preview/previewkit/internal/renderer"
)

// TemplateCache holds compiled page templates keyed by their render-scope
// id. The watcher clears it wholesale on theme changes; per-key precision
// is not worth tracking file-to-scope reverse mappings.
type TemplateCache struct {
	cache *ristretto.Cache[string, *pongo2.Template]
}

// NewTemplateCache creates a cache bounded to roughly maxEntries compiled
// templates. A non-positive bound uses a default sized for local use.
func NewTemplateCache(maxEntries int64) (*TemplateCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *pongo2.Template]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &TemplateCache{cache: cache}, nil
}

// Get returns the compiled template for a scope key.
func (c *TemplateCache) Get(key string) (*pongo2.Template, bool) {
	return c.cache.Get(key)
}

// Put stores a compiled template at unit cost. Admission is best-effort:
// ristretto may reject an entry under a tight bound, and callers treat a
// later miss as a recompile, never an error.
func (c *TemplateCache) Put(key string, tpl *pongo2.Template) {
	c.cache.Set(key, tpl, 1)
	c.cache.Wait()
}

// Clear drops every cached template.
func (c *TemplateCache) Clear() {
	c.cache.Clear()
}

// Close releases the cache's internal goroutines.
func (c *TemplateCache) Close() {
	c.cache.Close()
}

var _ renderer.TemplateCache = (*TemplateCache)(nil)
