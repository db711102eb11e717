package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/store"
)

// minimumCounts is the floor of demo records per entity type below which
// a preview looks broken: component pools come up empty and list pages
// render blank.
var minimumCounts = map[string]int{
	store.EntityProduct:        12,
	store.EntityCategory:       8,
	store.EntityBrand:          8,
	store.EntityBlogArticle:    8,
	store.EntityBlogCategory:   4,
	store.EntityPage:           4,
	store.EntitySpecialOffer:   2,
	store.EntityOptionTemplate: 2,
}

// Backfiller tops tenants up to the minimum demo data.
type Backfiller struct {
	store  store.Store
	logger logging.Logger
}

// NewBackfiller creates a minimum-data backfiller over the store.
func NewBackfiller(s store.Store, logger logging.Logger) *Backfiller {
	return &Backfiller{store: s, logger: logger.WithComponent("seed")}
}

// EnsureMinimum generates demo entities for every type below its floor
// and guarantees the tenant's profile pseudo-entity exists. It is cheap
// when nothing is missing.
func (b *Backfiller) EnsureMinimum(ctx context.Context, tenantID string) error {
	tenant, err := b.store.Tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	for entityType, minimum := range minimumCounts {
		count, err := b.store.Entities.CountByTenantAndType(ctx, tenantID, entityType)
		if err != nil {
			return err
		}
		if count >= minimum {
			continue
		}

		for i := count; i < minimum; i++ {
			entity := store.Entity{
				TenantID: tenantID,
				Type:     entityType,
				Key:      uuid.NewString(),
				Payload:  demoPayload(entityType, i+1, tenant.Currency),
			}
			if err := b.store.Entities.Put(ctx, entity); err != nil {
				return err
			}
		}
		b.logger.Debug(ctx, "backfilled demo entities",
			"tenant", tenantID, "type", entityType, "added", minimum-count)
	}

	return b.ensureProfile(ctx, tenant)
}

// ensureProfile creates the store_profile pseudo-entity when absent.
func (b *Backfiller) ensureProfile(ctx context.Context, tenant *store.Tenant) error {
	if _, err := b.store.Entities.GetByKey(ctx, tenant.ID, store.EntityStoreProfile, tenant.ID); err == nil {
		return nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"id":       tenant.ID,
		"name":     tenant.Name,
		"locale":   tenant.Locale,
		"currency": tenant.Currency,
	})
	return b.store.Entities.Put(ctx, store.Entity{
		TenantID: tenant.ID,
		Type:     store.EntityStoreProfile,
		Key:      tenant.ID,
		Payload:  payload,
	})
}

// demoPayload synthesizes a plausible record for one entity type. The
// shapes mirror what themes read: localized names, slugs, prices.
func demoPayload(entityType string, n int, currency string) json.RawMessage {
	var m map[string]interface{}

	switch entityType {
	case store.EntityProduct:
		m = map[string]interface{}{
			"name":        map[string]interface{}{"ar": fmt.Sprintf("منتج تجريبي %d", n), "en": fmt.Sprintf("Demo Product %d", n)},
			"slug":        fmt.Sprintf("demo-product-%d", n),
			"price":       float64(25 * n),
			"sale_price":  0.0,
			"currency":    currency,
			"quantity":    10,
			"image":       fmt.Sprintf("https://cdn.storefront.cloud/demo/products/%d.jpg", n),
			"description": map[string]interface{}{"ar": "وصف المنتج التجريبي", "en": "A demo product description."},
		}
	case store.EntityCategory:
		m = map[string]interface{}{
			"name": map[string]interface{}{"ar": fmt.Sprintf("تصنيف %d", n), "en": fmt.Sprintf("Category %d", n)},
			"slug": fmt.Sprintf("demo-category-%d", n),
		}
	case store.EntityBrand:
		m = map[string]interface{}{
			"name": fmt.Sprintf("Demo Brand %d", n),
			"slug": fmt.Sprintf("demo-brand-%d", n),
			"logo": fmt.Sprintf("https://cdn.storefront.cloud/demo/brands/%d.png", n),
		}
	case store.EntityBlogArticle:
		m = map[string]interface{}{
			"title":   map[string]interface{}{"ar": fmt.Sprintf("مقال %d", n), "en": fmt.Sprintf("Article %d", n)},
			"slug":    fmt.Sprintf("demo-article-%d", n),
			"excerpt": "A short demo excerpt.",
			"body":    "<p>Demo article body.</p>",
		}
	case store.EntityBlogCategory:
		m = map[string]interface{}{
			"name": map[string]interface{}{"ar": fmt.Sprintf("قسم المدونة %d", n), "en": fmt.Sprintf("Blog Section %d", n)},
			"slug": fmt.Sprintf("demo-blog-category-%d", n),
		}
	case store.EntityPage:
		m = map[string]interface{}{
			"title": map[string]interface{}{"ar": fmt.Sprintf("صفحة %d", n), "en": fmt.Sprintf("Page %d", n)},
			"slug":  fmt.Sprintf("demo-page-%d", n),
			"body":  "<p>Demo page content.</p>",
		}
	case store.EntitySpecialOffer:
		m = map[string]interface{}{
			"name":          fmt.Sprintf("Demo Offer %d", n),
			"discount_type": "percentage",
			"discount":      float64(5 * n),
		}
	case store.EntityOptionTemplate:
		m = map[string]interface{}{
			"name": fmt.Sprintf("Demo Options %d", n),
			"options": []interface{}{
				map[string]interface{}{"name": "Size", "values": []interface{}{"S", "M", "L"}},
			},
		}
	default:
		m = map[string]interface{}{"name": fmt.Sprintf("Demo %s %d", entityType, n)}
	}

	raw, _ := json.Marshal(m)
	return raw
}
