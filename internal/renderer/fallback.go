package renderer

import (
	"errors"
	"strings"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

// The fallback cascade is a small state machine over explicit stages
// instead of string checks scattered through the renderer: a failed
// primary render of home retries once under the alternate alias, any
// other failure rewrites the page to the generic single-page template,
// and a failure there ends the cascade.
type renderStage int

const (
	stagePrimary renderStage = iota
	stageAliasRetry
	stageGenericFallback
	stageExhausted
)

// FallbackPageID is the generic single-page template every theme is
// expected to ship; it is the cascade's last renderable stop.
const FallbackPageID = "page-single"

// homeAliases are the two interchangeable ids of the landing page.
var homeAliases = map[string]string{
	"home":  "index",
	"index": "home",
}

type fallback struct {
	stage  renderStage
	pageID string
}

func newFallback(pageID string) *fallback {
	return &fallback{stage: stagePrimary, pageID: pageID}
}

// advance moves the machine after a failed render and returns the page id
// to try next. ok is false once the cascade is exhausted.
func (f *fallback) advance(err error) (string, bool) {
	switch f.stage {
	case stagePrimary:
		if alias, isHome := homeAliases[f.pageID]; isHome && isMissingTemplate(err, f.pageID) {
			f.stage = stageAliasRetry
			f.pageID = alias
			return f.pageID, true
		}
		if f.pageID != FallbackPageID {
			f.stage = stageGenericFallback
			f.pageID = FallbackPageID
			return f.pageID, true
		}
		f.stage = stageExhausted
		return "", false

	case stageAliasRetry:
		f.stage = stageGenericFallback
		f.pageID = FallbackPageID
		return f.pageID, true

	default:
		f.stage = stageExhausted
		return "", false
	}
}

// onGenericFallback reports whether the machine already rewrote the page
// to the generic template.
func (f *fallback) onGenericFallback() bool {
	return f.stage == stageGenericFallback
}

// isMissingTemplate reports whether err signals the page template itself
// is absent. Typed not-found errors from the provider are authoritative;
// the engine-text marker check is kept here, localized, for errors that
// surface through the template engine instead.
func isMissingTemplate(err error, pageID string) bool {
	if apperr.IsNotFound(err) {
		return true
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Kind == apperr.KindNotFound
	}
	return err != nil && strings.Contains(err.Error(), "pages/"+pageID+".twig")
}
