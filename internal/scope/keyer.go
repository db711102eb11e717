// Package scope derives stable identity keys for render operations.
//
// A render scope is the coordinate tuple of one render: tenant, theme,
// theme version, template, views location, and viewport. The keyer turns
// that tuple into a deterministic cache id so an external template cache
// can recognize identical renders. The keyer itself never caches anything.
package scope

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Default values applied when a coordinate is absent.
const (
	DefaultViewport = "desktop"

	keyPrefix    = "tpl"
	keyDelimiter = "|"
	digestLength = 16
)

// Coordinates identifies one render operation.
type Coordinates struct {
	TenantID     string
	ThemeID      string
	ThemeVersion string
	ThemeFolder  string
	TemplateID   string
	TemplatePath string
	ViewsPath    string
	Viewport     string
}

// Key derives the cache id for the coordinates. Identical coordinates
// always produce the identical key; any coordinate changing changes it.
func Key(c Coordinates) string {
	fields := []string{
		token(c.TenantID, "tenant-unknown"),
		token(c.ThemeID, "theme-unknown"),
		token(c.ThemeVersion, "version-unknown"),
		pathToken(c.ThemeFolder, "folder-unknown"),
		token(c.TemplateID, "template-unknown"),
		pathToken(c.TemplatePath, "path-unknown"),
		pathToken(c.ViewsPath, "views-unknown"),
		token(c.Viewport, DefaultViewport),
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, keyDelimiter)))
	digest := hex.EncodeToString(sum[:])[:digestLength]
	return keyPrefix + "-" + digest
}

// token normalizes a coordinate to a non-empty trimmed value.
func token(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

// pathToken normalizes a path-like coordinate to forward-slash form.
func pathToken(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return strings.ReplaceAll(v, "\\", "/")
}
