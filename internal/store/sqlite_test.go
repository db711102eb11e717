package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

func openTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "preview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.Bundle()
}

func TestSQLiteTenantRoundTrip(t *testing.T) {
	bundle := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, bundle.Tenants.Save(ctx, &Tenant{
		ID: "t1", Name: "Demo", Locale: "ar-SA", Currency: "SAR",
		ThemeID: "aurora", Settings: []byte(`{"x":1}`),
	}))

	got, err := bundle.Tenants.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Demo", got.Name)
	assert.JSONEq(t, `{"x":1}`, string(got.Settings))

	_, err = bundle.Tenants.Get(ctx, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSQLiteParentCycleRejected(t *testing.T) {
	bundle := openTestSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, bundle.Tenants.Save(ctx, &Tenant{ID: id, Name: id}))
	}
	require.NoError(t, bundle.Tenants.SetParent(ctx, "b", "a"))
	require.NoError(t, bundle.Tenants.SetParent(ctx, "c", "b"))

	err := bundle.Tenants.SetParent(ctx, "a", "c")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	assert.True(t, apperr.IsValidation(bundle.Tenants.SetParent(ctx, "a", "a")))
	assert.True(t, apperr.IsNotFound(bundle.Tenants.SetParent(ctx, "a", "ghost")))
}

func TestSQLiteEntities(t *testing.T) {
	bundle := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, bundle.Entities.Put(ctx, Entity{
		TenantID: "t1", Type: EntityProduct, Key: "p2", Payload: []byte(`{"name":"two"}`),
	}))
	require.NoError(t, bundle.Entities.Put(ctx, Entity{
		TenantID: "t1", Type: EntityProduct, Key: "p1", Payload: []byte(`{"name":"one"}`),
	}))
	// Upsert replaces the payload in place.
	require.NoError(t, bundle.Entities.Put(ctx, Entity{
		TenantID: "t1", Type: EntityProduct, Key: "p1", Payload: []byte(`{"name":"one-v2"}`),
	}))

	list, err := bundle.Entities.ListByTenantAndType(ctx, "t1", EntityProduct)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].Key)
	assert.Contains(t, string(list[0].Payload), "one-v2")

	n, err := bundle.Entities.CountByTenantAndType(ctx, "t1", EntityProduct)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = bundle.Entities.GetByKey(ctx, "t1", EntityProduct, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSQLiteCompositions(t *testing.T) {
	bundle := openTestSQLite(t)
	ctx := context.Background()

	comp := PageComposition{
		TenantID: "t1",
		PageKey:  "home",
		Entries: []CompositionEntry{
			{ComponentID: "slider", Visibility: Visibility{Enabled: true, Viewport: "all"}},
		},
	}
	require.NoError(t, bundle.Tenants.SaveComposition(ctx, comp))

	// Replacing the same page key overwrites instead of duplicating.
	comp.Entries[0].ComponentID = "banner"
	require.NoError(t, bundle.Tenants.SaveComposition(ctx, comp))

	got, err := bundle.Tenants.Compositions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "banner", got[0].Entries[0].ComponentID)
}

func TestSQLiteThemes(t *testing.T) {
	bundle := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, bundle.Themes.Save(ctx, &Theme{
		ID: "aurora", Name: "Aurora",
		Versions: []ThemeVersion{{ID: "v1", Version: "1.0.0", Schema: []byte(`{}`)}},
	}))

	got, err := bundle.Themes.Get(ctx, "aurora")
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "1.0.0", got.Versions[0].Version)
}
