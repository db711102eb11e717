package pages

import (
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// ComponentInstance is a schema component bound to resolved field data,
// ready to render.
type ComponentInstance struct {
	ID     string
	Path   string
	Name   string
	Fields map[string]interface{}
}

// AsMap returns the instance in the shape templates consume.
func (c ComponentInstance) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"id":     c.ID,
		"path":   c.Path,
		"name":   c.Name,
		"fields": c.Fields,
	}
}

// Resolve produces the ordered component instances for a page. The
// schema's default set applies unless the tenant saved a page composition
// for one of the page's keys, in which case the saved entries replace it.
func Resolve(rc *runtime.Context, pageID, viewport string) []ComponentInstance {
	keys := PageKeys(pageID)
	defaults := defaultSet(rc.Schema.Components, keys)

	if override := overrideSet(rc, keys, defaults, viewport); override != nil {
		return resolveFields(rc, override)
	}
	return resolveFields(rc, defaults)
}

// resolvedComponent pairs a definition with its prop overrides before
// field binding.
type resolvedComponent struct {
	def   themes.ComponentDef
	props map[string]interface{}
}

// defaultSet unions the schema components matching any page key's rule,
// de-duplicated by component key in schema declaration order.
func defaultSet(components []themes.ComponentDef, keys []string) []resolvedComponent {
	seen := make(map[string]bool)
	var out []resolvedComponent

	for _, key := range keys {
		rule := ruleFor(key)
		for _, def := range components {
			if !rule.matches(def.Path) || seen[def.Key()] {
				continue
			}
			seen[def.Key()] = true
			out = append(out, resolvedComponent{def: def})
		}
	}
	return out
}

// overrideSet applies the first saved page composition found for the
// page's keys. Entries are visibility-filtered and resolved against the
// default set by component id; saved order and prop overrides win. nil
// means no composition applies.
func overrideSet(rc *runtime.Context, keys []string, defaults []resolvedComponent, viewport string) []resolvedComponent {
	if rc.Compositions == nil {
		return nil
	}

	var entries []runtime.CompositionEntry
	found := false
	for _, key := range keys {
		if saved, ok := rc.Compositions[key]; ok {
			entries = saved
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	byID := make(map[string]themes.ComponentDef, len(defaults))
	for _, c := range defaults {
		byID[c.def.Key()] = c.def
	}

	out := make([]resolvedComponent, 0, len(entries))
	for _, entry := range entries {
		if !entry.Visibility.Matches(viewport) {
			continue
		}
		def, ok := byID[entry.ComponentID]
		if !ok {
			continue
		}
		out = append(out, resolvedComponent{def: def, props: entry.Props})
	}
	return out
}

func resolveFields(rc *runtime.Context, components []resolvedComponent) []ComponentInstance {
	out := make([]ComponentInstance, 0, len(components))
	for _, c := range components {
		out = append(out, ComponentInstance{
			ID:     c.def.Key(),
			Path:   c.def.Path,
			Name:   c.def.Name,
			Fields: bindFields(rc, c.def, c.props),
		})
	}
	return out
}
