package themes

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

func themeFS() fstest.MapFS {
	return fstest.MapFS{
		"aurora/schema.json": &fstest.MapFile{Data: []byte(`{
			"name": "Aurora", "version": "1.0.0",
			"settings": [{"key": "colors.primary", "type": "color", "default": "#102030"}],
			"components": [{"path": "home.slider", "fields": [{"key": "title", "type": "string"}]}]
		}`)},
		"aurora/views/pages/home.twig":              &fstest.MapFile{Data: []byte(`<h1>{{ store.name }}</h1>`)},
		"aurora/views/components/home/slider.twig":  &fstest.MapFile{Data: []byte(`<div class="slider"></div>`)},
		"aurora/views/components/shared/footer.twig": &fstest.MapFile{Data: []byte(`<footer></footer>`)},
		"aurora/locales/ar.json":                    &fstest.MapFile{Data: []byte(`{"cart": {"title": "السلة"}}`)},
	}
}

func TestSchemaExists(t *testing.T) {
	p := NewFSProvider(themeFS())

	assert.True(t, p.SchemaExists("aurora"))
	assert.False(t, p.SchemaExists("missing"))
}

func TestReadSchemaAndParse(t *testing.T) {
	p := NewFSProvider(themeFS())

	raw, err := p.ReadSchema("aurora")
	require.NoError(t, err)

	schema := ParseSchema(raw)
	assert.Equal(t, "Aurora", schema.Name)
	require.Len(t, schema.Components, 1)
	assert.Equal(t, "home.slider", schema.Components[0].Path)
	assert.Equal(t, map[string]interface{}{"colors.primary": "#102030"}, schema.SettingDefaults())
}

func TestParseSchemaMalformedDegrades(t *testing.T) {
	schema := ParseSchema([]byte(`{"settings": [`))
	assert.Empty(t, schema.Components)
	assert.Empty(t, schema.Settings)
}

func TestReadTemplate(t *testing.T) {
	p := NewFSProvider(themeFS())

	raw, err := p.ReadTemplate("aurora", PageTemplatePath("home"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "store.name")

	_, err = p.ReadTemplate("aurora", PageTemplatePath("ghost"))
	assert.True(t, apperr.IsNotFound(err))
}

func TestListComponents(t *testing.T) {
	p := NewFSProvider(themeFS())

	components, err := p.ListComponents("aurora")
	require.NoError(t, err)
	assert.Equal(t, []string{"home.slider", "shared.footer"}, components)

	components, err = p.ListComponents("missing")
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestComponentTemplatePath(t *testing.T) {
	assert.Equal(t, "views/components/home/slider.twig", ComponentTemplatePath("home.slider"))
	assert.Equal(t, "views/components/footer.twig", ComponentTemplatePath("footer"))
}

func TestLocaleFile(t *testing.T) {
	p := NewFSProvider(themeFS())

	raw, err := p.LocaleFile("aurora", "ar")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cart")

	_, err = p.LocaleFile("aurora", "fr")
	assert.True(t, apperr.IsNotFound(err))
}
