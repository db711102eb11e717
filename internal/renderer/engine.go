package renderer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/storefront-preview/previewkit/internal/apperr"
	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/pages"
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/scope"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// TemplateCache caches compiled page templates under render-scope keys.
// Implementations must be safe for concurrent use.
type TemplateCache interface {
	Get(key string) (*pongo2.Template, bool)
	Put(key string, tpl *pongo2.Template)
}

// Engine renders theme pages. One engine serves the whole process; all
// per-request state travels through renderState values.
type Engine struct {
	provider themes.Provider
	cache    TemplateCache
	logger   logging.Logger
}

// Options carries the request-side rendering inputs.
type Options struct {
	Viewport string
	// Hooks maps named injection points onto content inlined where a
	// template calls hook(name).
	Hooks map[string]string
	// LocalOrigin replaces production platform hosts in the output.
	LocalOrigin string
	// Refresh bypasses the compiled-template cache for this render.
	Refresh bool
}

// NewEngine creates a renderer over a theme provider.
func NewEngine(provider themes.Provider, logger logging.Logger) *Engine {
	return &Engine{provider: provider, logger: logger.WithComponent("renderer")}
}

// WithCache attaches a compiled-template cache and returns the engine.
func (e *Engine) WithCache(cache TemplateCache) *Engine {
	e.cache = cache
	return e
}

// Render renders the context's page into final HTML, running the
// fallback cascade on failure. The returned HTML is post-processed for
// the local preview origin.
func (e *Engine) Render(ctx context.Context, rc *runtime.Context, opts Options) (string, error) {
	if opts.Viewport == "" {
		opts.Viewport = "desktop"
	}

	e.mergeLocale(rc)

	fb := newFallback(rc.Page.ID)
	pageID := rc.Page.ID
	var firstErr error

	for {
		html, err := e.renderOnce(rc, pageID, opts)
		if err == nil {
			return postProcess(html, opts.LocalOrigin), nil
		}

		if firstErr == nil {
			firstErr = err
		}
		e.logger.Warn(ctx, err, "render failed", "page", pageID, "theme", rc.Theme.ID)

		if fb.onGenericFallback() {
			// The generic template itself failed. A missing template
			// still yields a visible error document; an execution error
			// is a hard failure.
			if isMissingTemplate(err, pageID) {
				return postProcess(errorDocument(rc, firstErr), opts.LocalOrigin), nil
			}
			return "", apperr.Render("render_exhausted", err, "rendering page %q for tenant %q", rc.Page.ID, rc.Store.ID)
		}

		next, ok := fb.advance(err)
		if !ok {
			if isMissingTemplate(err, pageID) {
				return postProcess(errorDocument(rc, firstErr), opts.LocalOrigin), nil
			}
			return "", apperr.Render("render_exhausted", err, "rendering page %q for tenant %q", rc.Page.ID, rc.Store.ID)
		}

		if fb.onGenericFallback() {
			synthesizeFallbackPage(rc)
		}
		pageID = next
	}
}

// renderOnce resolves components, loads and compiles the page template,
// and executes it with the request's bound extensions.
func (e *Engine) renderOnce(rc *runtime.Context, pageID string, opts Options) (string, error) {
	state := newRenderState(rc, e.provider, opts.Viewport, opts.Hooks)

	tpl, err := e.compile(rc, state.themeFolder, pageID, opts)
	if err != nil {
		return "", err
	}

	components := pages.Resolve(rc, pageID, opts.Viewport)
	state.vars = e.buildVars(rc, pageID, components)
	for name, fn := range bindExtensions(state) {
		state.vars[name] = fn
	}

	out, execErr := tpl.Execute(state.vars)
	if execErr != nil {
		return "", apperr.Render("template_execute", execErr, "executing template for page %q", pageID)
	}
	return out, nil
}

// compile loads and compiles a page template, consulting the
// scope-keyed cache when one is attached. A refresh request recompiles
// and overwrites the cached entry.
func (e *Engine) compile(rc *runtime.Context, themeFolder, pageID string, opts Options) (*pongo2.Template, error) {
	var key string
	if e.cache != nil {
		key = scope.Key(scope.Coordinates{
			TenantID:     rc.Store.ID,
			ThemeID:      rc.Theme.ID,
			ThemeVersion: rc.Theme.Version,
			ThemeFolder:  themeFolder,
			TemplateID:   pageID,
			TemplatePath: themes.PageTemplatePath(pageID),
			ViewsPath:    themes.ViewsDir,
			Viewport:     opts.Viewport,
		})
		if !opts.Refresh {
			if tpl, ok := e.cache.Get(key); ok {
				return tpl, nil
			}
		}
	}

	raw, err := e.provider.ReadTemplate(themeFolder, themes.PageTemplatePath(pageID))
	if err != nil {
		return nil, err
	}

	tpl, err := pongo2.FromString(string(raw))
	if err != nil {
		return nil, apperr.Render("template_parse", err, "parsing template for page %q", pageID)
	}
	if e.cache != nil {
		e.cache.Put(key, tpl)
	}
	return tpl, nil
}

// buildVars assembles the render variables: the stable top-level names
// plus every collection and enrichment value.
func (e *Engine) buildVars(rc *runtime.Context, pageID string, components []pages.ComponentInstance) pongo2.Context {
	componentMaps := make([]map[string]interface{}, 0, len(components))
	for _, c := range components {
		componentMaps = append(componentMaps, c.AsMap())
	}
	rc.Page.Components = componentMaps

	// The store variable is the profile entity payload underneath the
	// composed identity, so profile extras (logo, description, ...) are
	// reachable without letting seeded data clobber id or locale.
	storeVars := make(map[string]interface{}, len(rc.Profile)+6)
	for k, v := range rc.Profile {
		storeVars[k] = v
	}
	storeVars["id"] = rc.Store.ID
	storeVars["name"] = rc.Store.Name
	storeVars["locale"] = rc.Store.Locale
	storeVars["language"] = rc.Store.Language
	storeVars["currency"] = rc.Store.Currency
	storeVars["branding"] = rc.Store.Branding

	vars := pongo2.Context{
		"store": storeVars,
		"theme": map[string]interface{}{
			"id":      rc.Theme.ID,
			"name":    rc.Theme.Name,
			"folder":  rc.Theme.Folder,
			"version": rc.Theme.Version,
		},
		"page": map[string]interface{}{
			"id":          pageID,
			"template_id": rc.Page.TemplateID,
			"title":       rc.Page.Title,
			"body":        rc.Page.Body,
			"components":  componentMaps,
		},
		"settings":     rc.Settings,
		"translations": rc.Translations,
	}

	for name, items := range rc.Collections {
		vars[name] = items
	}
	for name, value := range rc.Extra {
		vars[name] = value
	}
	return vars
}

// mergeLocale merges the theme's locale file for the tenant language into
// the translation table. Absence is non-fatal.
func (e *Engine) mergeLocale(rc *runtime.Context) {
	folder := rc.Theme.Folder
	if folder == "" {
		folder = rc.Theme.ID
	}
	raw, err := e.provider.LocaleFile(folder, rc.Store.Language)
	if err != nil {
		return
	}

	var nested map[string]interface{}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return
	}
	for k, v := range runtime.FlattenTranslations(nested) {
		if _, exists := rc.Translations[k]; !exists {
			rc.Translations[k] = v
		}
	}
}

// synthesizeFallbackPage rewrites the page descriptor to the generic
// single-page template, describing the originally requested route.
func synthesizeFallbackPage(rc *runtime.Context) {
	requested := rc.Page.ID
	rc.Page.Title = fmt.Sprintf("Preview: %s", requested)
	rc.Page.Body = fmt.Sprintf(
		"<p>The theme does not implement the %q template yet. This placeholder keeps the preview navigable.</p>",
		requested,
	)
}

// errorDocument renders the visible last-resort error page shown when
// even the generic fallback template is missing.
func errorDocument(rc *runtime.Context, cause error) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang=%q>
<head><meta charset="utf-8"><title>Preview error</title></head>
<body>
<h1>Preview unavailable</h1>
<p>The theme %q could not render page %q.</p>
<pre>%s</pre>
</body>
</html>`, rc.Store.Language, rc.Theme.ID, rc.Page.ID, cause)
}
