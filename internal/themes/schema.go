// Package themes provides access to theme packages: the versioned JSON
// schema describing settings fields and component definitions, and the
// template file tree the renderer loads pages and components from.
package themes

import "encoding/json"

// Field semantic types and formats declared by theme schemas.
const (
	FieldTypeItems      = "items"
	FieldTypeCollection = "collection"

	FormatDropdownList = "dropdown-list"
	FormatVariableList = "variable-list"
)

// Schema is the parsed theme schema for one theme version.
type Schema struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Author     string         `json:"author"`
	Settings   []SettingField `json:"settings"`
	Components []ComponentDef `json:"components"`
}

// SettingField declares one theme-level setting with its default value.
type SettingField struct {
	Key     string      `json:"key"`
	Type    string      `json:"type"`
	Default interface{} `json:"default,omitempty"`
}

// ComponentDef declares one renderable component at a stable dotted path
// such as "home.slider".
type ComponentDef struct {
	ID     string     `json:"id,omitempty"`
	Path   string     `json:"path"`
	Name   string     `json:"name,omitempty"`
	Fields []FieldDef `json:"fields,omitempty"`
}

// Key returns the component's identity: the declared id when present,
// otherwise its path.
func (c ComponentDef) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Path
}

// FieldDef declares one component field.
type FieldDef struct {
	Key     string      `json:"key"`
	Type    string      `json:"type"`
	Format  string      `json:"format,omitempty"`
	Source  string      `json:"source,omitempty"`
	Default interface{} `json:"default,omitempty"`
}

// ParseSchema decodes a schema document. A malformed document degrades to
// an empty schema so a broken theme package still previews.
func ParseSchema(raw []byte) Schema {
	var s Schema
	if len(raw) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Schema{}
	}
	return s
}

// SettingDefaults returns the schema's per-field default values keyed by
// setting key. Fields without a default are omitted.
func (s Schema) SettingDefaults() map[string]interface{} {
	defaults := make(map[string]interface{}, len(s.Settings))
	for _, f := range s.Settings {
		if f.Default != nil {
			defaults[f.Key] = f.Default
		}
	}
	return defaults
}
