package themes

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

// Provider abstracts the storage a theme package is loaded from. The
// concrete backing may be local disk, a bundled archive, or a remote blob.
type Provider interface {
	SchemaExists(theme string) bool
	ReadSchema(theme string) ([]byte, error)
	// ReadTemplate reads a template by theme-relative path, e.g.
	// "views/pages/home.twig".
	ReadTemplate(theme, relPath string) ([]byte, error)
	// ListComponents returns the component template paths available under
	// the theme's component directory, relative to the views root.
	ListComponents(theme string) ([]string, error)
	// LocaleFile reads the theme's locale table for a language code, e.g.
	// "locales/ar.json". Missing files are a not-found error, never fatal.
	LocaleFile(theme, lang string) ([]byte, error)
}

// Conventional locations inside a theme package.
const (
	SchemaFile    = "schema.json"
	ViewsDir      = "views"
	PagesDir      = "views/pages"
	ComponentsDir = "views/components"
	LocalesDir    = "locales"
	TemplateExt   = ".twig"
)

// PageTemplatePath returns the theme-relative path of a page template.
func PageTemplatePath(pageID string) string {
	return path.Join(PagesDir, pageID+TemplateExt)
}

// ComponentTemplatePath returns the theme-relative path of a component
// template. Dotted component paths map onto directories, so "home.slider"
// resolves to views/components/home/slider.twig.
func ComponentTemplatePath(componentPath string) string {
	rel := strings.ReplaceAll(componentPath, ".", "/")
	return path.Join(ComponentsDir, rel+TemplateExt)
}

// FSProvider serves theme packages from an fs.FS whose top-level entries
// are theme folders.
type FSProvider struct {
	fsys fs.FS
}

// NewFSProvider creates a provider over the given filesystem.
func NewFSProvider(fsys fs.FS) *FSProvider {
	return &FSProvider{fsys: fsys}
}

// NewDirProvider creates a provider over a local themes directory.
func NewDirProvider(root string) *FSProvider {
	return &FSProvider{fsys: os.DirFS(root)}
}

// SchemaExists reports whether the theme ships a schema document.
func (p *FSProvider) SchemaExists(theme string) bool {
	_, err := fs.Stat(p.fsys, path.Join(theme, SchemaFile))
	return err == nil
}

// ReadSchema reads the theme's schema document.
func (p *FSProvider) ReadSchema(theme string) ([]byte, error) {
	raw, err := fs.ReadFile(p.fsys, path.Join(theme, SchemaFile))
	if err != nil {
		return nil, apperr.NotFound("schema_not_found", "theme %q has no schema", theme)
	}
	return raw, nil
}

// ReadTemplate reads a template file by theme-relative path.
func (p *FSProvider) ReadTemplate(theme, relPath string) ([]byte, error) {
	raw, err := fs.ReadFile(p.fsys, path.Join(theme, path.Clean(relPath)))
	if err != nil {
		return nil, apperr.NotFound("template_not_found", "theme %q has no template %q", theme, relPath)
	}
	return raw, nil
}

// ListComponents walks the theme's component directory and returns dotted
// component paths, sorted.
func (p *FSProvider) ListComponents(theme string) ([]string, error) {
	root := path.Join(theme, ComponentsDir)
	var out []string

	err := fs.WalkDir(p.fsys, root, func(entryPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(entryPath, TemplateExt) {
			return nil
		}
		rel := strings.TrimPrefix(entryPath, root+"/")
		rel = strings.TrimSuffix(rel, TemplateExt)
		out = append(out, strings.ReplaceAll(rel, "/", "."))
		return nil
	})
	if err != nil {
		// A theme without a component directory exposes no components.
		return nil, nil
	}
	sort.Strings(out)
	return out, nil
}

// LocaleFile reads the theme's locale table for a language code.
func (p *FSProvider) LocaleFile(theme, lang string) ([]byte, error) {
	raw, err := fs.ReadFile(p.fsys, path.Join(theme, LocalesDir, lang+".json"))
	if err != nil {
		return nil, apperr.NotFound("locale_not_found", "theme %q has no locale file for %q", theme, lang)
	}
	return raw, nil
}

var _ Provider = (*FSProvider)(nil)
