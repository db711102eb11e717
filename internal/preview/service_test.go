package preview

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-preview/previewkit/internal/apperr"
	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/renderer"
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/store"
	"github.com/storefront-preview/previewkit/internal/themes"
)

type countingBackfiller struct{ calls int }

func (b *countingBackfiller) EnsureMinimum(ctx context.Context, tenantID string) error {
	b.calls++
	return nil
}

func testService(t *testing.T, backfiller Backfiller) *Service {
	t.Helper()

	mem := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, mem.SaveTheme(ctx, &store.Theme{
		ID:     "aurora",
		Name:   "Aurora",
		Folder: "aurora",
		Versions: []store.ThemeVersion{
			{ID: "v1", Version: "1.2.0", Schema: []byte(`{"name":"Aurora"}`)},
		},
	}))
	require.NoError(t, mem.Save(ctx, &store.Tenant{
		ID: "t1", Name: "Demo Store", Locale: "ar-SA", Currency: "SAR",
		ThemeID: "aurora", ThemeVersion: "v1",
	}))
	// Seeded tenants always carry a profile entity; the happy path must
	// render with it present.
	require.NoError(t, mem.Put(ctx, store.Entity{
		TenantID: "t1", Type: store.EntityStoreProfile, Key: "t1",
		Payload: []byte(`{"name":"Demo Store","logo":"https://cdn.example.com/logo.png"}`),
	}))

	fsys := fstest.MapFS{
		"aurora/views/pages/home.twig": &fstest.MapFile{Data: []byte(
			`<html><body>{{ store.name }} / {{ viewport }}</body></html>`)},
		"aurora/views/pages/product/single.twig": &fstest.MapFile{Data: []byte(
			`<html><body>product page</body></html>`)},
	}

	bundle := mem.Bundle()
	logger := logging.NewNop()
	return NewService(Config{
		Composer:         runtime.NewComposer(bundle, logger),
		Engine:           renderer.NewEngine(themes.NewFSProvider(fsys), logger),
		Backfiller:       backfiller,
		MetricsWindow:    16,
		BackfillCooldown: time.Minute,
		Logger:           logger,
	})
}

func TestServeRendersHome(t *testing.T) {
	svc := testService(t, nil)

	res, err := svc.Serve(context.Background(), Request{TenantID: "t1", Page: "home"})
	require.NoError(t, err)

	assert.Contains(t, res.HTML, "Demo Store")
	assert.Contains(t, res.HTML, "desktop")
	assert.Equal(t, "home", res.Target.PageID)
	assert.Regexp(t, `^tpl-[0-9a-f]{16}$`, res.ScopeKey)

	rec := res.Record
	assert.Equal(t, "t1", rec.TenantID)
	assert.Equal(t, "aurora", rec.ThemeID)
	assert.Equal(t, "1.2.0", rec.ThemeVersion)
	assert.Equal(t, "desktop", rec.Viewport)
	assert.Contains(t, rec.Phases, PhaseCompose)
	assert.Contains(t, rec.Phases, PhaseEnrich)
	assert.Contains(t, rec.Phases, PhaseRender)

	assert.Equal(t, 1, svc.Metrics().Baseline().Count)
}

func TestServeDeepLink(t *testing.T) {
	svc := testService(t, nil)

	res, err := svc.Serve(context.Background(), Request{TenantID: "t1", Path: "/ar/products/blue-shirt"})
	require.NoError(t, err)

	assert.Equal(t, "product/single", res.Target.PageID)
	assert.Equal(t, "blue-shirt", res.Target.EntityRef)
	assert.Contains(t, res.HTML, "product page")
}

func TestServeUnknownTenant(t *testing.T) {
	svc := testService(t, nil)

	_, err := svc.Serve(context.Background(), Request{TenantID: "ghost", Page: "home"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, 0, svc.Metrics().Baseline().Count)
}

func TestServeBackfillCooldown(t *testing.T) {
	bf := &countingBackfiller{}
	svc := testService(t, bf)
	ctx := context.Background()

	_, err := svc.Serve(ctx, Request{TenantID: "t1", Page: "home"})
	require.NoError(t, err)
	_, err = svc.Serve(ctx, Request{TenantID: "t1", Page: "home"})
	require.NoError(t, err)

	assert.Equal(t, 1, bf.calls)
}

func TestServeScopeKeyVariesByViewport(t *testing.T) {
	svc := testService(t, nil)
	ctx := context.Background()

	desktop, err := svc.Serve(ctx, Request{TenantID: "t1", Page: "home"})
	require.NoError(t, err)
	mobile, err := svc.Serve(ctx, Request{TenantID: "t1", Page: "home", Viewport: "mobile"})
	require.NoError(t, err)

	assert.NotEqual(t, desktop.ScopeKey, mobile.ScopeKey)
}
