package pages

import (
	"strconv"
	"strings"

	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// Preview conveniences: how many pool items a dropdown-list field shows
// when the tenant never made an explicit selection.
const (
	defaultProductSelection = 12
	defaultPoolSelection    = 8
)

// Static semantic link targets.
var staticLinks = map[string]string{
	"offers_link": "/offers",
	"brands_link": "/brands",
	"blog_link":   "/blog",
}

// sourcePools maps a variable-list source type onto the collection it
// searches and the path segment its URLs use.
var sourcePools = map[string]struct {
	collection string
	segment    string
}{
	"product":  {"products", "products"},
	"category": {"categories", "categories"},
	"brand":    {"brands", "brands"},
	"page":     {"pages", "pages"},
	"article":  {"blog_articles", "blog"},
}

// bindFields resolves every declared field of a component against the
// runtime context and any saved prop overrides.
func bindFields(rc *runtime.Context, def themes.ComponentDef, props map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(def.Fields)+len(props))

	for _, f := range def.Fields {
		value := f.Default
		overridden := false
		if props != nil {
			if v, ok := props[f.Key]; ok {
				value = v
				overridden = true
			}
		}

		switch {
		case f.Type == themes.FieldTypeItems && f.Format == themes.FormatDropdownList:
			value = resolveDropdown(rc, f, value, overridden)
		case f.Type == themes.FieldTypeItems && f.Format == themes.FormatVariableList:
			value = resolveLink(rc, value)
		case f.Type == themes.FieldTypeCollection:
			value = flattenCollectionValue(value)
		default:
			value = localizeScalar(rc, value)
		}
		fields[f.Key] = value
	}

	// Props without a declared field pass through untouched.
	for k, v := range props {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	return fields
}

// resolveDropdown matches the stored selection ids against the named
// pool. With no selection and no override, the first N pool items stand
// in so the preview never shows an empty block.
func resolveDropdown(rc *runtime.Context, f themes.FieldDef, value interface{}, overridden bool) []runtime.Item {
	pool := rc.Collection(poolNameOf(f.Source))

	ids := selectionIDs(value)
	if len(ids) == 0 && !overridden {
		limit := defaultPoolSelection
		if poolNameOf(f.Source) == "products" {
			limit = defaultProductSelection
		}
		if len(pool) < limit {
			limit = len(pool)
		}
		return append([]runtime.Item(nil), pool[:limit]...)
	}

	byID := make(map[string]runtime.Item, len(pool))
	for _, item := range pool {
		byID[asID(item["id"])] = item
	}

	out := make([]runtime.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

// poolNameOf normalizes a schema source name onto a collection name.
func poolNameOf(source string) string {
	switch source {
	case "products", "product":
		return "products"
	case "categories", "category":
		return "categories"
	case "brands", "brand":
		return "brands"
	default:
		return source
	}
}

// selectionIDs extracts the stored selection from a saved field value:
// either a list of ids or a list of objects carrying ids.
func selectionIDs(value interface{}) []string {
	list, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch tv := v.(type) {
		case map[string]interface{}:
			if id := asID(tv["id"]); id != "" {
				out = append(out, id)
			}
		default:
			if id := asID(tv); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// resolveLink resolves a variable-list value to a concrete URL, emitting
// "#" when nothing applies.
func resolveLink(rc *runtime.Context, value interface{}) string {
	switch v := value.(type) {
	case string:
		return normalizePath(v)
	case map[string]interface{}:
		linkType := asID(v["type"])

		if target, ok := staticLinks[linkType]; ok {
			return target
		}
		if linkType == "custom" {
			if link := asID(v["link"]); link != "" {
				return normalizePath(link)
			}
			if url := asID(v["url"]); url != "" {
				return normalizePath(url)
			}
			return "#"
		}
		if pool, ok := sourcePools[linkType]; ok {
			id := asID(v["id"])
			if id == "" {
				return "#"
			}
			for _, item := range rc.Collection(pool.collection) {
				if asID(item["id"]) == id {
					if slug := asID(item["slug"]); slug != "" {
						return "/" + pool.segment + "/" + slug
					}
					break
				}
			}
			return "/" + linkType + "/" + id
		}
	}
	return "#"
}

// normalizePath keeps absolute URLs and roots everything else.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// localizeScalar reduces a localized object to one string using the
// tenant's language, then ar, then en, then the first string member.
// Non-localized values pass through unchanged.
func localizeScalar(rc *runtime.Context, value interface{}) interface{} {
	m, ok := value.(map[string]interface{})
	if !ok {
		return value
	}

	order := []string{rc.Store.Language, "ar", "en"}
	for _, lang := range order {
		if lang == "" {
			continue
		}
		if s, ok := m[lang].(string); ok {
			return s
		}
	}
	for _, v := range m {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return value
}

// flattenCollectionValue flattens dotted item keys to their last path
// segment: {"product.name": x} becomes {"name": x}.
func flattenCollectionValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, flattenItemKeys(m))
			} else {
				out = append(out, item)
			}
		}
		return out
	case map[string]interface{}:
		return flattenItemKeys(v)
	default:
		return value
	}
}

func flattenItemKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if i := strings.LastIndex(k, "."); i >= 0 {
			k = k[i+1:]
		}
		out[k] = v
	}
	return out
}

// asID renders an id-like value as a comparable string.
func asID(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int:
		return strconv.Itoa(tv)
	default:
		return ""
	}
}
