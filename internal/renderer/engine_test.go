package renderer

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/flosch/pongo2/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/themes"
)

func testTheme() fstest.MapFS {
	return fstest.MapFS{
		"aurora/views/pages/home.twig": &fstest.MapFile{Data: []byte(
			`<html><body><h1>{{ store.name }}</h1>` +
				`<p>{{ t("cart.title") }}</p>` +
				`{% for c in page.components %}{{ component(c) }}{% endfor %}` +
				`{{ hook("body:end") }}</body></html>`)},
		"aurora/views/pages/page-single.twig": &fstest.MapFile{Data: []byte(
			`<html><body><h2>{{ page.title }}</h2>{{ page.body|safe }}</body></html>`)},
		"aurora/views/components/home/slider.twig": &fstest.MapFile{Data: []byte(
			`<div class="slider">{{ fields.title }}</div>`)},
		"aurora/locales/ar.json": &fstest.MapFile{Data: []byte(`{"checkout": {"title": "الدفع"}}`)},
	}
}

func testRuntimeContext(pageID string) *runtime.Context {
	return &runtime.Context{
		Theme: runtime.ThemeRef{ID: "aurora", Folder: "aurora", Version: "1.0.0"},
		Store: runtime.StoreProfile{
			ID: "store-1", Name: "Demo Store", Locale: "ar-SA", Language: "ar", Currency: "SAR",
		},
		Page: runtime.Page{ID: pageID, TemplateID: pageID},
		Schema: themes.Schema{
			Components: []themes.ComponentDef{
				{Path: "home.slider", Fields: []themes.FieldDef{
					{Key: "title", Type: "string", Default: map[string]interface{}{"ar": "عرض", "en": "Slide"}},
				}},
			},
		},
		Settings:     map[string]interface{}{},
		Translations: map[string]string{"cart.title": "السلة"},
		Collections:  map[string][]runtime.Item{},
	}
}

func newTestEngine() *Engine {
	return NewEngine(themes.NewFSProvider(testTheme()), logging.NewNop())
}

func TestRenderHomePage(t *testing.T) {
	rc := testRuntimeContext("home")

	html, err := newTestEngine().Render(context.Background(), rc, Options{
		Hooks: map[string]string{"body:end": `<script>preview()</script>`},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Demo Store</h1>")
	assert.Contains(t, html, "السلة")
	// The component sub-template rendered with its localized field.
	assert.Contains(t, html, `<div class="slider">عرض</div>`)
	// The hook content was inlined unescaped.
	assert.Contains(t, html, "<script>preview()</script>")
	// The storage-clearing bootstrap is injected before </body>.
	assert.Contains(t, html, `data-previewkit="bootstrap"`)
}

func TestRenderStoreVarsMergeProfile(t *testing.T) {
	fsys := fstest.MapFS{
		"aurora/views/pages/home.twig": &fstest.MapFile{Data: []byte(
			`<h1>{{ store.name }}</h1><img src="{{ store.logo }}">`)},
	}
	engine := NewEngine(themes.NewFSProvider(fsys), logging.NewNop())
	rc := testRuntimeContext("home")
	rc.Profile = runtime.Item{
		"name": "Seeded Profile Name",
		"logo": "https://cdn.example.com/logo.png",
	}

	html, err := engine.Render(context.Background(), rc, Options{})
	require.NoError(t, err)

	// Profile extras surface on the store variable, but the composed
	// identity keeps precedence and field access stays map-shaped.
	assert.Contains(t, html, "<h1>Demo Store</h1>")
	assert.Contains(t, html, "https://cdn.example.com/logo.png")
	assert.NotContains(t, html, "Seeded Profile Name")
	assert.NotContains(t, html, "does not implement")
}

func TestRenderMergesThemeLocale(t *testing.T) {
	rc := testRuntimeContext("home")

	_, err := newTestEngine().Render(context.Background(), rc, Options{})
	require.NoError(t, err)

	// The locale file adds keys but never overrides the tenant's table.
	assert.Equal(t, "الدفع", rc.Translations["checkout.title"])
	assert.Equal(t, "السلة", rc.Translations["cart.title"])
}

func TestRenderHomeAliasRetry(t *testing.T) {
	fsys := fstest.MapFS{
		"aurora/views/pages/index.twig": &fstest.MapFile{Data: []byte(`<html><body>alias</body></html>`)},
	}
	engine := NewEngine(themes.NewFSProvider(fsys), logging.NewNop())
	rc := testRuntimeContext("home")

	html, err := engine.Render(context.Background(), rc, Options{})
	require.NoError(t, err)
	assert.Contains(t, html, "alias")
}

func TestRenderGenericFallback(t *testing.T) {
	rc := testRuntimeContext("customer/orders/index")

	html, err := newTestEngine().Render(context.Background(), rc, Options{})
	require.NoError(t, err)

	assert.Contains(t, html, "Preview: customer/orders/index")
	assert.Contains(t, html, "does not implement")
}

func TestRenderErrorDocumentWhenFallbackMissing(t *testing.T) {
	fsys := fstest.MapFS{} // theme ships nothing at all
	engine := NewEngine(themes.NewFSProvider(fsys), logging.NewNop())
	rc := testRuntimeContext("product/single")

	html, err := engine.Render(context.Background(), rc, Options{})
	require.NoError(t, err)
	assert.Contains(t, html, "Preview unavailable")
}

func TestRenderHardFailureOnBrokenFallbackTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"aurora/views/pages/page-single.twig": &fstest.MapFile{Data: []byte(`{% broken`)},
	}
	engine := NewEngine(themes.NewFSProvider(fsys), logging.NewNop())
	rc := testRuntimeContext("product/single")

	_, err := engine.Render(context.Background(), rc, Options{})
	require.Error(t, err)
}

type stubTemplateCache struct {
	entries map[string]*pongo2.Template
	puts    int
}

func (c *stubTemplateCache) Get(key string) (*pongo2.Template, bool) {
	tpl, ok := c.entries[key]
	return tpl, ok
}

func (c *stubTemplateCache) Put(key string, tpl *pongo2.Template) {
	c.entries[key] = tpl
	c.puts++
}

func TestRenderCompiledTemplateCache(t *testing.T) {
	cache := &stubTemplateCache{entries: map[string]*pongo2.Template{}}
	engine := NewEngine(themes.NewFSProvider(testTheme()), logging.NewNop()).WithCache(cache)
	ctx := context.Background()

	_, err := engine.Render(ctx, testRuntimeContext("home"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	// The second identical render reuses the compiled template.
	_, err = engine.Render(ctx, testRuntimeContext("home"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	// A refresh recompiles and overwrites the entry.
	_, err = engine.Render(ctx, testRuntimeContext("home"), Options{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.puts)
}

func TestRenderFallbackPageDoesNotCascadeAgain(t *testing.T) {
	fsys := fstest.MapFS{} // page-single missing entirely
	engine := NewEngine(themes.NewFSProvider(fsys), logging.NewNop())
	rc := testRuntimeContext("page-single")

	html, err := engine.Render(context.Background(), rc, Options{})
	require.NoError(t, err)
	assert.Contains(t, html, "Preview unavailable")
}
