package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront-preview/previewkit/internal/apperr"
	"github.com/storefront-preview/previewkit/internal/themes"
)

func newState() *renderState {
	rc := testRuntimeContext("home")
	return newRenderState(rc, themes.NewFSProvider(testTheme()), "desktop", map[string]string{
		"body:end": "<script></script>",
	})
}

func TestAssetURLRewriting(t *testing.T) {
	s := newState()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"theme relative", "css/app.css", "/themes/aurora/public/css/app.css"},
		{"dot relative", "./img/logo.png", "/themes/aurora/public/img/logo.png"},
		{"root absolute untouched", "/shared/reset.css", "/shared/reset.css"},
		{"absolute untouched", "https://cdn.example.com/a.js", "https://cdn.example.com/a.js"},
		{"protocol relative untouched", "//cdn.example.com/a.js", "//cdn.example.com/a.js"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.assetURL(tt.in))
		})
	}
}

func TestTranslateFallsBackToKey(t *testing.T) {
	s := newState()

	assert.Equal(t, "السلة", s.translate("cart.title"))
	assert.Equal(t, "unknown.key", s.translate("unknown.key"))
}

func TestFormatMoney(t *testing.T) {
	// Unknown codes degrade to a plain suffix form.
	assert.Equal(t, "12.50 XXZ", formatMoney(12.5, "XXZ", "en"))

	// Known codes render with a currency symbol or code.
	usd := formatMoney(10, "USD", "en")
	assert.True(t, strings.Contains(usd, "$") || strings.Contains(usd, "USD"), usd)

	sar := formatMoney(99.9, "SAR", "ar")
	assert.NotEmpty(t, sar)
}

func TestRenderComponentDepthGuard(t *testing.T) {
	s := newState()
	s.depth = maxComponentDepth

	_, err := renderComponent(s, "home.slider", nil)
	assert.Error(t, err)
}

func TestFallbackStateMachine(t *testing.T) {
	missing := apperr.NotFound("template_not_found", "no template")

	t.Run("home retries alias once then generic", func(t *testing.T) {
		fb := newFallback("home")

		next, ok := fb.advance(missing)
		assert.True(t, ok)
		assert.Equal(t, "index", next)

		next, ok = fb.advance(missing)
		assert.True(t, ok)
		assert.Equal(t, FallbackPageID, next)

		_, ok = fb.advance(missing)
		assert.False(t, ok)
	})

	t.Run("non-home goes straight to generic", func(t *testing.T) {
		fb := newFallback("product/single")

		next, ok := fb.advance(errors.New("boom"))
		assert.True(t, ok)
		assert.Equal(t, FallbackPageID, next)
	})

	t.Run("fallback page never cascades", func(t *testing.T) {
		fb := newFallback(FallbackPageID)

		_, ok := fb.advance(missing)
		assert.False(t, ok)
	})

	t.Run("home with non-missing error skips alias", func(t *testing.T) {
		fb := newFallback("home")

		next, ok := fb.advance(errors.New("syntax error"))
		assert.True(t, ok)
		assert.Equal(t, FallbackPageID, next)
	})
}

func TestPostProcessHostRewrite(t *testing.T) {
	html := `<html><body><a href="https://www.storefront.cloud/products/x">x</a></body></html>`

	out := postProcess(html, "http://localhost:4000")
	assert.Contains(t, out, "http://localhost:4000/products/x")
	assert.NotContains(t, out, "storefront.cloud")
	// Bootstrap lands before the closing body tag.
	assert.Less(t, strings.Index(out, "data-previewkit"), strings.Index(out, "</body>"))
}

func TestInjectBootstrapWithoutBody(t *testing.T) {
	out := injectBootstrap("<div>fragment</div>")
	assert.Contains(t, out, "data-previewkit")
}
