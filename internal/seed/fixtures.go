// Package seed loads demo fixtures into the backing store and tops
// sparse tenants up to the minimum data the preview needs.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storefront-preview/previewkit/internal/apperr"
	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/store"
)

// Bundle is one YAML fixture document.
type Bundle struct {
	Tenants  []TenantFixture `yaml:"tenants"`
	Themes   []ThemeFixture  `yaml:"themes"`
	Entities []EntityFixture `yaml:"entities"`
}

// TenantFixture describes one simulated store.
type TenantFixture struct {
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Locale       string                 `yaml:"locale"`
	Currency     string                 `yaml:"currency"`
	Theme        string                 `yaml:"theme"`
	ThemeVersion string                 `yaml:"theme_version"`
	Parent       string                 `yaml:"parent"`
	Master       bool                   `yaml:"master"`
	Settings     map[string]interface{} `yaml:"settings"`
	Branding     map[string]interface{} `yaml:"branding"`
}

// ThemeFixture describes a theme package and its versions.
type ThemeFixture struct {
	ID       string                 `yaml:"id"`
	Name     string                 `yaml:"name"`
	Author   string                 `yaml:"author"`
	Folder   string                 `yaml:"folder"`
	Settings map[string]interface{} `yaml:"settings"`
	Versions []ThemeVersionFixture  `yaml:"versions"`
}

// ThemeVersionFixture is one schema revision of a theme.
type ThemeVersionFixture struct {
	ID      string                 `yaml:"id"`
	Version string                 `yaml:"version"`
	Schema  map[string]interface{} `yaml:"schema"`
}

// EntityFixture is one tenant-scoped data record.
type EntityFixture struct {
	Tenant  string                 `yaml:"tenant"`
	Type    string                 `yaml:"type"`
	Key     string                 `yaml:"key"`
	Payload map[string]interface{} `yaml:"payload"`
}

// LoadFile reads and parses a YAML fixture bundle from disk.
func LoadFile(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NotFound("fixture_not_found", "reading fixture file %q: %v", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML fixture bundle.
func Parse(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, apperr.Validation("fixture_malformed", "parsing fixture bundle: %v", err)
	}
	return &b, nil
}

// Apply writes the bundle into the store. Themes load first so tenant
// theme assignments resolve, and parents load before children so parent
// validation passes.
func Apply(ctx context.Context, s store.Store, b *Bundle, logger logging.Logger) error {
	for _, tf := range b.Themes {
		theme := &store.Theme{
			ID:       tf.ID,
			Name:     tf.Name,
			Author:   tf.Author,
			Folder:   tf.Folder,
			Settings: marshalObject(tf.Settings),
		}
		for _, v := range tf.Versions {
			theme.Versions = append(theme.Versions, store.ThemeVersion{
				ID:      v.ID,
				Version: v.Version,
				Schema:  marshalObject(v.Schema),
			})
		}
		if err := s.Themes.Save(ctx, theme); err != nil {
			return fmt.Errorf("seeding theme %q: %w", tf.ID, err)
		}
	}

	for _, tf := range sortTenantsByDepth(b.Tenants) {
		tenant := &store.Tenant{
			ID:           tf.ID,
			Name:         tf.Name,
			Locale:       tf.Locale,
			Currency:     tf.Currency,
			ThemeID:      tf.Theme,
			ThemeVersion: tf.ThemeVersion,
			ParentID:     tf.Parent,
			Master:       tf.Master,
			Settings:     marshalObject(tf.Settings),
			Branding:     marshalObject(tf.Branding),
		}
		if err := s.Tenants.Save(ctx, tenant); err != nil {
			return fmt.Errorf("seeding tenant %q: %w", tf.ID, err)
		}
	}

	for _, ef := range b.Entities {
		entity := store.Entity{
			TenantID: ef.Tenant,
			Type:     ef.Type,
			Key:      ef.Key,
			Payload:  marshalObject(ef.Payload),
		}
		if err := s.Entities.Put(ctx, entity); err != nil {
			return fmt.Errorf("seeding %s %q for tenant %q: %w", ef.Type, ef.Key, ef.Tenant, err)
		}
	}

	logger.Info(ctx, "fixtures applied",
		"themes", len(b.Themes), "tenants", len(b.Tenants), "entities", len(b.Entities))
	return nil
}

// sortTenantsByDepth orders tenants so every parent precedes its
// children. Fixtures with dangling parents keep their relative order and
// fail at save time instead.
func sortTenantsByDepth(tenants []TenantFixture) []TenantFixture {
	byID := make(map[string]TenantFixture, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	depth := func(t TenantFixture) int {
		d := 0
		seen := map[string]bool{t.ID: true}
		for cur := t.Parent; cur != "" && !seen[cur]; {
			seen[cur] = true
			d++
			next, ok := byID[cur]
			if !ok {
				break
			}
			cur = next.Parent
		}
		return d
	}

	out := append([]TenantFixture(nil), tenants...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && depth(out[j]) < depth(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func marshalObject(m map[string]interface{}) json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return raw
}
