//go:build property
// +build property

package scope

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestKeyProperties verifies determinism and coordinate sensitivity over
// generated coordinate tuples.
func TestKeyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	coordGen := gen.RegexMatch(`^[a-z0-9-]{1,24}$`)

	// Property: the key is a pure function of its coordinates.
	properties.Property("key determinism", prop.ForAll(
		func(tenant, theme, version, viewport string) bool {
			c := Coordinates{
				TenantID:     tenant,
				ThemeID:      theme,
				ThemeVersion: version,
				Viewport:     viewport,
			}
			return Key(c) == Key(c)
		},
		coordGen, coordGen, coordGen, coordGen,
	))

	// Property: distinct tenants never share a key for otherwise equal
	// coordinates.
	properties.Property("tenant sensitivity", prop.ForAll(
		func(tenantA, tenantB, theme string) bool {
			if tenantA == tenantB {
				return true
			}
			a := Key(Coordinates{TenantID: tenantA, ThemeID: theme})
			b := Key(Coordinates{TenantID: tenantB, ThemeID: theme})
			return a != b
		},
		coordGen, coordGen, coordGen,
	))

	// Property: every key carries the cache-id prefix and fixed length.
	properties.Property("key shape", prop.ForAll(
		func(tenant string) bool {
			k := Key(Coordinates{TenantID: tenant})
			return len(k) == len("tpl-")+digestLength && k[:4] == "tpl-"
		},
		coordGen,
	))

	properties.TestingRun(t)
}
