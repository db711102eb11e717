// Package pages resolves a logical page id into the ordered component
// instances that render on it: canonical page keys, per-key path rules
// over the schema's component namespace, tenant composition overrides,
// and field-level data binding.
package pages

import "strings"

// pathRule selects schema components for one page key. A component path
// matches a prefix when it equals the prefix or continues it with a dot.
type pathRule struct {
	Include []string
	Exclude []string
}

// pageKeyTable maps logical page ids onto canonical page keys. One id may
// cover several keys: product/index renders both listing and category
// components.
var pageKeyTable = map[string][]string{
	"home":                   {"home"},
	"index":                  {"home"},
	"product/index":          {"product-list", "category"},
	"product/single":         {"product"},
	"cart":                   {"cart"},
	"checkout":               {"checkout"},
	"blog/index":             {"blog"},
	"blog/single":            {"blog-article"},
	"customer/orders/index":  {"orders"},
	"customer/orders/single": {"order"},
	"customer/profile":       {"profile"},
	"page-single":            {"page"},
	"brands":                 {"brands"},
}

// pageKeyRules maps canonical page keys onto component path rules.
var pageKeyRules = map[string]pathRule{
	"home":         {Include: []string{"home", "shared"}},
	"product-list": {Include: []string{"products", "shared"}, Exclude: []string{"products.single"}},
	"category":     {Include: []string{"category", "shared"}},
	"product":      {Include: []string{"product", "shared"}},
	"cart":         {Include: []string{"cart", "shared"}},
	"checkout":     {Include: []string{"checkout", "shared"}},
	"blog":         {Include: []string{"blog", "shared"}, Exclude: []string{"blog.article"}},
	"blog-article": {Include: []string{"blog.article", "shared"}},
	"orders":       {Include: []string{"orders", "account", "shared"}},
	"order":        {Include: []string{"order", "account", "shared"}},
	"profile":      {Include: []string{"account", "shared"}},
	"page":         {Include: []string{"page", "shared"}},
	"brands":       {Include: []string{"brands", "shared"}},
}

// PageKeys normalizes a raw page id onto its canonical page keys. Unknown
// ids without a path separator pass through verbatim; anything else
// defaults to home.
func PageKeys(pageID string) []string {
	if keys, ok := pageKeyTable[pageID]; ok {
		return keys
	}
	if !strings.Contains(pageID, "/") && pageID != "" {
		return []string{pageID}
	}
	return []string{"home"}
}

// ruleFor returns the path rule of a page key. Keys outside the table
// select components under their own path prefix, so a passthrough page id
// like "landing" still renders its landing.* components.
func ruleFor(key string) pathRule {
	if rule, ok := pageKeyRules[key]; ok {
		return rule
	}
	return pathRule{Include: []string{key}}
}

// matchesPrefix reports whether a component path equals the prefix or
// continues it after a dot.
func matchesPrefix(componentPath, prefix string) bool {
	if componentPath == prefix {
		return true
	}
	return strings.HasPrefix(componentPath, prefix+".")
}

// matches applies the rule to one component path.
func (r pathRule) matches(componentPath string) bool {
	included := false
	for _, p := range r.Include {
		if matchesPrefix(componentPath, p) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range r.Exclude {
		if matchesPrefix(componentPath, p) {
			return false
		}
	}
	return true
}
