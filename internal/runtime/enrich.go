package runtime

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-preview/previewkit/internal/routes"
)

// EnrichOptions carries the request-side inputs of enrichment.
type EnrichOptions struct {
	Target          routes.Target
	Viewport        string
	ThemeOverride   string
	VersionOverride string
	// Identity is an authenticated customer payload when the preview
	// simulates a logged-in session; nil renders as a guest.
	Identity map[string]interface{}
	Now      time.Time
}

// Enrich fills the contractual gaps of a composed context so templates
// can rely on a stable shape regardless of how sparse the backing data
// is. It must run after composition and before rendering.
func Enrich(rc *Context, opts EnrichOptions) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Viewport == "" {
		opts.Viewport = "desktop"
	}

	applyPreviewMetadata(rc, opts)
	ensureCartAndCheckout(rc)
	ensureIdentity(rc, opts.Identity)
	deriveProductRefs(rc)
	assembleBlogViews(rc)

	if opts.Target.PageID == "product/single" {
		enrichProductPage(rc, opts)
	}
}

// applyPreviewMetadata binds preview-only request state into the context.
func applyPreviewMetadata(rc *Context, opts EnrichOptions) {
	if opts.ThemeOverride != "" {
		rc.Theme.ID = opts.ThemeOverride
		rc.Theme.Folder = opts.ThemeOverride
	}
	if opts.VersionOverride != "" {
		rc.Theme.Version = opts.VersionOverride
	}
	rc.Page.TemplateID = rc.Page.ID
	rc.SetExtra("viewport", opts.Viewport)
	rc.SetExtra("is_mobile", opts.Viewport == "mobile")
	rc.SetExtra("route", opts.Target.RoutePath)
}

// ensureCartAndCheckout synthesizes empty cart and checkout objects when
// the backing data supplies none.
func ensureCartAndCheckout(rc *Context) {
	if _, ok := rc.Extra["cart"]; !ok {
		rc.SetExtra("cart", map[string]interface{}{
			"id":             "preview-cart",
			"items":          []interface{}{},
			"items_count":    0,
			"sub_total":      0.0,
			"total":          0.0,
			"currency":       rc.Store.Currency,
			"coupon":         nil,
			"free_shipping":  false,
			"requires_login": false,
		})
	}
	if _, ok := rc.Extra["checkout"]; !ok {
		rc.SetExtra("checkout", map[string]interface{}{
			"id":               "preview-checkout",
			"payment_methods":  []interface{}{},
			"shipping_methods": []interface{}{},
			"step":             "cart",
		})
	}
}

// ensureIdentity synthesizes a guest identity or normalizes a supplied
// one, and mirrors the result under the customer alias.
func ensureIdentity(rc *Context, identity map[string]interface{}) {
	var user map[string]interface{}

	if identity != nil {
		user = make(map[string]interface{}, len(identity)+3)
		for k, v := range identity {
			user[k] = v
		}
		first, last := splitName(str(user["name"]))
		if _, ok := user["first_name"]; !ok {
			user["first_name"] = first
		}
		if _, ok := user["last_name"]; !ok {
			user["last_name"] = last
		}
		if _, ok := user["is_guest"]; !ok {
			user["is_guest"] = false
		}
	} else {
		user = map[string]interface{}{
			"id":         "",
			"name":       "",
			"first_name": "",
			"last_name":  "",
			"email":      "",
			"is_guest":   true,
		}
	}

	rc.SetExtra("user", user)
	rc.SetExtra("customer", user)
}

// splitName splits a full name into first and last parts.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// deriveProductRefs backfills brand_id and category_ids on product records
// from their nested brand and categories references.
func deriveProductRefs(rc *Context) {
	for _, product := range rc.Collection("products") {
		if _, ok := product["brand_id"]; !ok {
			if brand, ok := product["brand"].(map[string]interface{}); ok {
				product["brand_id"] = brand["id"]
			}
		}
		if _, ok := product["category_ids"]; !ok {
			var ids []interface{}
			for _, c := range slice(product["categories"]) {
				if cat, ok := c.(map[string]interface{}); ok {
					ids = append(ids, cat["id"])
				}
			}
			if ids != nil {
				product["category_ids"] = ids
			}
		}
	}
}

// assembleBlogViews exposes blog articles and categories as the blog
// object templates iterate.
func assembleBlogViews(rc *Context) {
	rc.SetExtra("blog", map[string]interface{}{
		"articles":   itemsOrEmpty(rc.Collection("blog_articles")),
		"categories": itemsOrEmpty(rc.Collection("blog_categories")),
	})
}

// enrichProductPage builds the product-detail contract: normalized
// options, donation economics, the first matching offer, and a similar
// products list.
func enrichProductPage(rc *Context, opts EnrichOptions) {
	product := findByIDOrSlug(rc.Collection("products"), opts.Target.EntityRef)
	if product == nil {
		return
	}

	normalizeOptions(product)
	applyDonation(product, opts.Now)
	if offer := firstMatchingOffer(rc.Collection("special_offers"), product); offer != nil {
		product["offer"] = offer
	}
	rc.SetExtra("product", product)
	rc.SetExtra("similar_products", similarProducts(rc.Collection("products"), product))
}

// normalizeOptions duplicates every option's value list under a details
// alias for template compatibility.
func normalizeOptions(product Item) {
	for _, o := range slice(product["options"]) {
		option, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		if _, ok := option["details"]; !ok {
			option["details"] = option["values"]
		}
	}
}

// applyDonation computes donation economics on donation-type products:
// the collected percentage and whether donating is still possible.
func applyDonation(product Item, now time.Time) {
	donation, ok := product["donation"].(map[string]interface{})
	if !ok {
		return
	}

	collected := num(donation["collected_amount"])
	target := num(donation["target_amount"])

	if target > 0 {
		donation["target_percent"] = math.Round(collected / target * 100)
	} else {
		donation["target_percent"] = 0.0
	}

	canDonate := target <= 0 || collected < target
	if end := parseTime(donation["target_end_date"]); !end.IsZero() {
		canDonate = canDonate && end.After(now)
	}
	donation["can_donate"] = canDonate
}

// firstMatchingOffer returns the first offer whose product or category
// membership includes the product.
func firstMatchingOffer(offers []Item, product Item) Item {
	productID := str(product["id"])
	categoryIDs := map[string]bool{}
	for _, id := range slice(product["category_ids"]) {
		categoryIDs[str(id)] = true
	}

	for _, offer := range offers {
		for _, id := range slice(offer["product_ids"]) {
			if str(id) == productID {
				return offer
			}
		}
		for _, id := range slice(offer["category_ids"]) {
			if categoryIDs[str(id)] {
				return offer
			}
		}
	}
	return nil
}

// similarProducts selects products sharing a category or the brand of the
// given product, excluding the product itself.
func similarProducts(products []Item, product Item) []Item {
	productID := str(product["id"])
	brandID := str(product["brand_id"])
	categoryIDs := map[string]bool{}
	for _, id := range slice(product["category_ids"]) {
		categoryIDs[str(id)] = true
	}

	similar := make([]Item, 0)
	for _, candidate := range products {
		if str(candidate["id"]) == productID {
			continue
		}

		match := brandID != "" && str(candidate["brand_id"]) == brandID
		if !match {
			for _, id := range slice(candidate["category_ids"]) {
				if categoryIDs[str(id)] {
					match = true
					break
				}
			}
		}
		if match {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// findByIDOrSlug locates an item by id, slug, or key.
func findByIDOrSlug(items []Item, ref string) Item {
	if ref == "" {
		if len(items) > 0 {
			return items[0]
		}
		return nil
	}
	for _, item := range items {
		if str(item["id"]) == ref || str(item["slug"]) == ref || str(item["key"]) == ref {
			return item
		}
	}
	return nil
}

func itemsOrEmpty(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

func slice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

// str renders an id-like value as a comparable string. Numeric ids in
// decoded JSON arrive as float64 and compare against string route refs.
func str(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int:
		return strconv.Itoa(tv)
	default:
		return ""
	}
}

func num(v interface{}) float64 {
	switch tv := v.(type) {
	case float64:
		return tv
	case int:
		return float64(tv)
	case int64:
		return float64(tv)
	default:
		return 0
	}
}

// parseTime accepts RFC 3339 or date-only strings.
func parseTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
