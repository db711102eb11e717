// Package store holds the persisted simulator state: tenants, theme
// packages, tenant data entities, and saved page compositions, behind
// repository interfaces with in-memory and sqlite implementations.
package store

import (
	"encoding/json"
	"time"
)

// Entity types recognized by the simulator's mock backing store.
const (
	EntityProduct        = "product"
	EntityCategory       = "category"
	EntityBrand          = "brand"
	EntityOrder          = "order"
	EntityPage           = "page"
	EntityBlogArticle    = "blog_article"
	EntityBlogCategory   = "blog_category"
	EntityExport         = "export"
	EntityOptionTemplate = "option_template"
	EntitySpecialOffer   = "special_offer"
	EntityAffiliate      = "affiliate"
	EntityCoupon         = "coupon"
	EntityLoyalty        = "loyalty"
	EntityStoreProfile   = "store_profile"
)

// Tenant represents one simulated store.
type Tenant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Locale       string          `json:"locale"`
	Currency     string          `json:"currency"`
	Branding     json.RawMessage `json:"branding,omitempty"`
	Settings     json.RawMessage `json:"settings,omitempty"`
	ThemeID      string          `json:"theme_id"`
	ThemeVersion string          `json:"theme_version"`
	ParentID     string          `json:"parent_id,omitempty"`
	Master       bool            `json:"master"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Theme is a named theme package with one or more versions.
type Theme struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Author   string          `json:"author"`
	Folder   string          `json:"folder"`
	Versions []ThemeVersion  `json:"versions"`
	Settings json.RawMessage `json:"settings,omitempty"` // theme-level saved settings
}

// ThemeVersion is one immutable schema revision of a theme.
type ThemeVersion struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Schema  json.RawMessage `json:"schema"`
}

// VersionByID returns the version with the given id, falling back to the
// first version when the id is stale or empty. ok is false only when the
// theme has no versions at all.
func (t *Theme) VersionByID(id string) (ThemeVersion, bool) {
	for _, v := range t.Versions {
		if v.ID == id {
			return v, true
		}
	}
	if len(t.Versions) > 0 {
		return t.Versions[0], true
	}
	return ThemeVersion{}, false
}

// Entity is one generic tenant-scoped data record.
type Entity struct {
	TenantID  string          `json:"tenant_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PageComposition is a tenant override of which components appear on a
// page and in what order.
type PageComposition struct {
	TenantID string             `json:"tenant_id"`
	PageKey  string             `json:"page_key"`
	Entries  []CompositionEntry `json:"entries"`
}

// CompositionEntry is one saved component slot in a page composition.
type CompositionEntry struct {
	ComponentID string                 `json:"component_id"`
	Props       map[string]interface{} `json:"props,omitempty"`
	Visibility  Visibility             `json:"visibility"`
}

// Visibility controls whether a composition entry renders for a request.
type Visibility struct {
	Enabled  bool   `json:"enabled"`
	Viewport string `json:"viewport,omitempty"` // "mobile", "desktop", "all" or empty
}

// Matches reports whether the entry is visible for the given viewport.
func (v Visibility) Matches(viewport string) bool {
	if !v.Enabled {
		return false
	}
	switch v.Viewport {
	case "", "all":
		return true
	default:
		return v.Viewport == viewport
	}
}
