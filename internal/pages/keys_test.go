package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageKeyTableCoverage(t *testing.T) {
	// Every table entry maps to a non-empty key set backed by a rule.
	for id, keys := range pageKeyTable {
		assert.NotEmpty(t, keys, "page id %q", id)
		for _, key := range keys {
			assert.NotEmpty(t, ruleFor(key).Include, "page key %q", key)
		}
	}
}

func TestPageKeysNormalization(t *testing.T) {
	tests := []struct {
		pageID string
		want   []string
	}{
		{"home", []string{"home"}},
		{"index", []string{"home"}},
		{"product/index", []string{"product-list", "category"}},
		{"product/single", []string{"product"}},
		{"customer/orders/single", []string{"order"}},
		{"landing", []string{"landing"}},      // unknown, no separator: passthrough
		{"weird/unknown/path", []string{"home"}}, // unknown with separator: home
		{"", []string{"home"}},
	}

	for _, tt := range tests {
		t.Run(tt.pageID, func(t *testing.T) {
			assert.Equal(t, tt.want, PageKeys(tt.pageID))
		})
	}
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, matchesPrefix("home.slider", "home"))
	assert.True(t, matchesPrefix("home", "home"))
	assert.False(t, matchesPrefix("homepage.banner", "home"))
	assert.False(t, matchesPrefix("products.grid", "product"))
}

func TestPathRuleExclude(t *testing.T) {
	rule := pathRule{Include: []string{"blog"}, Exclude: []string{"blog.article"}}

	assert.True(t, rule.matches("blog.listing"))
	assert.False(t, rule.matches("blog.article.comments"))
	assert.False(t, rule.matches("home.slider"))
}
