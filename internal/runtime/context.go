// Package runtime composes the per-request runtime context: the single
// value carrying theme identity, tenant profile, merged settings,
// translations, and data collections through resolution and rendering.
// Contexts are built fresh per request and never persisted.
package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/storefront-preview/previewkit/internal/store"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// Item is one decoded entity payload inside a collection.
type Item = map[string]interface{}

// ThemeRef identifies the active theme of a request.
type ThemeRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Folder  string `json:"folder"`
	Version string `json:"version"`
}

// StoreProfile is the tenant as templates see it.
type StoreProfile struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Locale   string                 `json:"locale"`
	Language string                 `json:"language"`
	Currency string                 `json:"currency"`
	Branding map[string]interface{} `json:"branding"`
	Master   bool                   `json:"master"`
}

// Page describes the page being rendered.
type Page struct {
	ID         string                   `json:"id"`
	TemplateID string                   `json:"template_id"`
	Title      string                   `json:"title,omitempty"`
	Body       string                   `json:"body,omitempty"`
	Components []map[string]interface{} `json:"components"`
}

// Context is the composed runtime context of one render.
type Context struct {
	Theme        ThemeRef
	Schema       themes.Schema
	Store        StoreProfile
	Page         Page
	Settings     map[string]interface{}
	Translations map[string]string
	Collections  map[string][]Item

	// Profile is the decoded store_profile pseudo-entity payload. Its
	// fields extend the store render variable; the composed identity
	// fields win on collision.
	Profile Item

	// Compositions are the tenant's saved page overrides keyed by page key.
	Compositions map[string][]CompositionEntry

	// Extra carries enrichment output (cart, customer, checkout, ...)
	// merged into the render variables alongside the fields above.
	Extra map[string]interface{}
}

// CompositionEntry mirrors a saved page-composition slot.
type CompositionEntry struct {
	ComponentID string
	Props       map[string]interface{}
	Visibility  store.Visibility
}

// Collection returns a named collection, never nil.
func (c *Context) Collection(name string) []Item {
	if c.Collections == nil {
		return nil
	}
	return c.Collections[name]
}

// SetExtra stores an enrichment value.
func (c *Context) SetExtra(key string, value interface{}) {
	if c.Extra == nil {
		c.Extra = make(map[string]interface{})
	}
	c.Extra[key] = value
}

// decodeObject decodes a JSON blob into a generic map, degrading to an
// empty map on malformed input.
func decodeObject(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}

// FlattenTranslations reduces a nested translation object to dot-path
// keys: {"cart": {"title": "x"}} becomes {"cart.title": "x"}.
func FlattenTranslations(nested map[string]interface{}) map[string]string {
	flat := make(map[string]string)
	flattenInto(flat, "", nested)
	return flat
}

func flattenInto(flat map[string]string, prefix string, value map[string]interface{}) {
	for k, v := range value {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch tv := v.(type) {
		case map[string]interface{}:
			flattenInto(flat, key, tv)
		case string:
			flat[key] = tv
		default:
			flat[key] = fmt.Sprintf("%v", tv)
		}
	}
}

// languageOf extracts the language code from a locale such as "ar-SA".
func languageOf(locale string) string {
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			return locale[:i]
		}
	}
	return locale
}
