// Package routes interprets inbound preview paths and query parameters
// into a canonical render target: a logical page id plus an optional
// entity or collection reference extracted from the deep link.
package routes

import "strings"

// Target is the canonical interpretation of one preview request.
type Target struct {
	PageID        string
	RoutePath     string
	EntityRef     string
	CollectionRef string
}

// localeSegments are leading path segments treated as locale prefixes and
// stripped before deep-link matching.
var localeSegments = map[string]bool{
	"ar": true,
	"en": true,
}

// Resolve maps a page query parameter and a raw request path onto a render
// target. The page parameter wins when present; otherwise the path is
// interpreted. Unrecognized shapes pass through as a direct page id with
// no reference.
func Resolve(page, rawPath string) Target {
	source := strings.Trim(page, "/")
	if source == "" {
		source = strings.Trim(rawPath, "/")
	}

	segments := split(source)
	segments = stripLocale(segments)

	target := match(segments)
	target.RoutePath = "/" + strings.Join(segments, "/")
	return target
}

func split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func stripLocale(segments []string) []string {
	if len(segments) > 0 && localeSegments[segments[0]] {
		// A locale-only path is the localized home page.
		return segments[1:]
	}
	return segments
}

// match interprets the known deep-link shapes.
func match(segments []string) Target {
	if len(segments) == 0 {
		return Target{PageID: "home", RoutePath: "/"}
	}

	switch segments[0] {
	case "products":
		if len(segments) == 1 {
			return Target{PageID: "product/index"}
		}
		return Target{PageID: "product/single", EntityRef: segments[1]}

	case "categories", "category":
		if len(segments) > 1 {
			return Target{PageID: "product/index", CollectionRef: segments[1]}
		}
		return Target{PageID: "product/index"}

	case "brands":
		if len(segments) > 1 {
			return Target{PageID: "product/index", CollectionRef: segments[1]}
		}
		return Target{PageID: "brands"}

	case "blog":
		switch {
		case len(segments) == 1:
			return Target{PageID: "blog/index"}
		case segments[1] == "category" && len(segments) > 2:
			return Target{PageID: "blog/index", CollectionRef: segments[2]}
		default:
			return Target{PageID: "blog/single", EntityRef: segments[1]}
		}

	case "pages":
		if len(segments) > 1 {
			return Target{PageID: "page-single", EntityRef: segments[1]}
		}

	case "customer":
		if len(segments) > 1 && segments[1] == "orders" {
			if len(segments) > 2 {
				return Target{PageID: "customer/orders/single", EntityRef: segments[2]}
			}
			return Target{PageID: "customer/orders/index"}
		}
	}

	// Direct page id passthrough.
	return Target{PageID: strings.Join(segments, "/")}
}
