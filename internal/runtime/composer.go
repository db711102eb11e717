package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/store"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// collectionSources maps runtime collection names onto entity types. Every
// collection is fetched independently; one failing never aborts the rest.
var collectionSources = map[string]string{
	"products":         store.EntityProduct,
	"categories":       store.EntityCategory,
	"brands":           store.EntityBrand,
	"orders":           store.EntityOrder,
	"pages":            store.EntityPage,
	"blog_articles":    store.EntityBlogArticle,
	"blog_categories":  store.EntityBlogCategory,
	"exports":          store.EntityExport,
	"option_templates": store.EntityOptionTemplate,
	"special_offers":   store.EntitySpecialOffer,
	"affiliates":       store.EntityAffiliate,
	"coupons":          store.EntityCoupon,
	"loyalty":          store.EntityLoyalty,
}

// Composer builds runtime contexts from persisted state.
type Composer struct {
	store  store.Store
	logger logging.Logger
}

// NewComposer creates a context composer.
func NewComposer(s store.Store, logger logging.Logger) *Composer {
	return &Composer{store: s, logger: logger.WithComponent("composer")}
}

// Compose builds the runtime context for a tenant and requested page id.
// It returns nil (with a not-found error) when the tenant does not exist.
func (c *Composer) Compose(ctx context.Context, tenantID, pageID string) (*Context, error) {
	tenant, err := c.store.Tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	theme, ref, schema := c.resolveTheme(ctx, tenant)

	if pageID == "" {
		pageID = "home"
	}

	rc := &Context{
		Theme:        ref,
		Schema:       schema,
		Store:        profileOf(tenant),
		Page:         Page{ID: pageID, TemplateID: pageID},
		Settings:     mergeSettings(tenant, theme, schema),
		Translations: map[string]string{},
		Collections:  make(map[string][]Item, len(collectionSources)),
		Compositions: c.loadCompositions(ctx, tenant.ID),
	}

	c.fetchCollections(ctx, tenant, rc)
	c.attachProfile(ctx, tenant, rc)

	return rc, nil
}

// resolveTheme resolves the tenant's assigned theme and version. A missing
// theme or an empty version list degrades to an empty schema; a stale
// version id falls back to the theme's first version.
func (c *Composer) resolveTheme(ctx context.Context, tenant *store.Tenant) (*store.Theme, ThemeRef, themes.Schema) {
	ref := ThemeRef{ID: tenant.ThemeID, Folder: tenant.ThemeID}

	theme, err := c.store.Themes.Get(ctx, tenant.ThemeID)
	if err != nil {
		c.logger.Warn(ctx, err, "assigned theme missing", "tenant", tenant.ID, "theme", tenant.ThemeID)
		return nil, ref, themes.Schema{}
	}

	ref.Name = theme.Name
	if theme.Folder != "" {
		ref.Folder = theme.Folder
	}

	version, ok := theme.VersionByID(tenant.ThemeVersion)
	if !ok {
		c.logger.Warn(ctx, nil, "theme has no versions", "theme", theme.ID)
		return theme, ref, themes.Schema{}
	}
	ref.Version = version.Version

	return theme, ref, themes.ParseSchema(version.Schema)
}

// mergeSettings applies the settings precedence: tenant-saved over
// theme-saved over schema defaults. A default is used only when the key is
// absent from both saved layers. Malformed blobs degrade to empty maps.
func mergeSettings(tenant *store.Tenant, theme *store.Theme, schema themes.Schema) map[string]interface{} {
	merged := schema.SettingDefaults()

	if theme != nil {
		for k, v := range decodeObject(theme.Settings) {
			merged[k] = v
		}
	}
	for k, v := range decodeObject(tenant.Settings) {
		merged[k] = v
	}
	return merged
}

// fetchCollections loads every named collection in parallel. A collection
// that fails to load is logged and left empty.
func (c *Composer) fetchCollections(ctx context.Context, tenant *store.Tenant, rc *Context) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for name, entityType := range collectionSources {
		name, entityType := name, entityType
		g.Go(func() error {
			entities, err := store.ResolveCollection(gctx, c.store, tenant, entityType)
			if err != nil {
				c.logger.Warn(gctx, err, "collection fetch failed", "tenant", tenant.ID, "collection", name)
				return nil
			}

			items := make([]Item, 0, len(entities))
			for _, e := range entities {
				item := decodeObject(e.Payload)
				if _, ok := item["id"]; !ok {
					item["id"] = e.Key
				}
				items = append(items, item)
			}

			mu.Lock()
			rc.Collections[name] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// attachProfile loads the tenant profile pseudo-entity and flattens its
// translation table into the context.
func (c *Composer) attachProfile(ctx context.Context, tenant *store.Tenant, rc *Context) {
	profile, err := c.store.Entities.GetByKey(ctx, tenant.ID, store.EntityStoreProfile, tenant.ID)
	if err != nil {
		return
	}

	payload := decodeObject(profile.Payload)
	rc.Profile = payload

	if nested, ok := payload["translations"].(map[string]interface{}); ok {
		rc.Translations = FlattenTranslations(nested)
	}
}

func profileOf(tenant *store.Tenant) StoreProfile {
	return StoreProfile{
		ID:       tenant.ID,
		Name:     tenant.Name,
		Locale:   tenant.Locale,
		Language: languageOf(tenant.Locale),
		Currency: tenant.Currency,
		Branding: decodeObject(tenant.Branding),
		Master:   tenant.Master,
	}
}

func (c *Composer) loadCompositions(ctx context.Context, tenantID string) map[string][]CompositionEntry {
	saved, err := c.store.Tenants.Compositions(ctx, tenantID)
	if err != nil || len(saved) == 0 {
		return nil
	}

	out := make(map[string][]CompositionEntry, len(saved))
	for _, comp := range saved {
		entries := make([]CompositionEntry, 0, len(comp.Entries))
		for _, e := range comp.Entries {
			entries = append(entries, CompositionEntry{
				ComponentID: e.ComponentID,
				Props:       e.Props,
				Visibility:  e.Visibility,
			})
		}
		out[comp.PageKey] = entries
	}
	return out
}
