// Package renderer executes theme page templates against a composed
// runtime context and guarantees a renderable result through a fallback
// cascade. The template engine is pongo2; domain extensions (money,
// translation, asset rewriting, hooks, component recursion) are bound to
// an explicit per-request state value so concurrent renders never observe
// each other's tenant data.
package renderer

import (
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// maxComponentDepth bounds component recursion so a template including
// itself cannot hang a request.
const maxComponentDepth = 16

// renderState is the execution-scoped carrier of everything request
// specific the extensions need. It is created per render and threaded
// into every extension call; the engine itself holds no mutable
// per-request fields.
type renderState struct {
	rc          *runtime.Context
	provider    themes.Provider
	themeFolder string
	viewsPath   string
	viewport    string
	hooks       map[string]string
	vars        pongo2.Context
	depth       int
}

func newRenderState(rc *runtime.Context, provider themes.Provider, viewport string, hooks map[string]string) *renderState {
	folder := rc.Theme.Folder
	if folder == "" {
		folder = rc.Theme.ID
	}
	return &renderState{
		rc:          rc,
		provider:    provider,
		themeFolder: folder,
		viewsPath:   folder + "/" + themes.ViewsDir,
		viewport:    viewport,
		hooks:       hooks,
	}
}

// translate looks a dot-path key up in the request's translation table,
// returning the key itself when no translation exists.
func (s *renderState) translate(key string) string {
	if v, ok := s.rc.Translations[key]; ok {
		return v
	}
	return key
}

// assetURL rewrites theme-relative asset references onto the local theme
// asset mount. Absolute URLs and root-absolute paths pass through.
func (s *renderState) assetURL(ref string) string {
	if ref == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "//") {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	return "/themes/" + s.themeFolder + "/public/" + strings.TrimPrefix(ref, "./")
}

// hookContent returns the content registered at a named injection point.
func (s *renderState) hookContent(name string) string {
	return s.hooks[name]
}
