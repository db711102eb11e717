// Package preview orchestrates one preview request end to end: route
// interpretation, context composition, enrichment, rendering, and the
// timing record of the whole pipeline.
package preview

import (
	"context"
	"time"

	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/renderer"
	"github.com/storefront-preview/previewkit/internal/routes"
	"github.com/storefront-preview/previewkit/internal/runtime"
	"github.com/storefront-preview/previewkit/internal/scope"
	"github.com/storefront-preview/previewkit/internal/themes"
)

// Request carries everything the orchestrator needs for one render.
type Request struct {
	TenantID string
	// Page is the explicit page query parameter; it wins over Path.
	Page string
	// Path is the raw request path used for deep-link interpretation.
	Path            string
	Viewport        string
	ThemeOverride   string
	VersionOverride string
	// Identity simulates a logged-in customer; nil renders as a guest.
	Identity map[string]interface{}
	Hooks    map[string]string
	// Refresh bypasses the compiled-template cache for this request.
	Refresh     bool
	LocalOrigin string
}

// Result is the outcome of one orchestrated render.
type Result struct {
	HTML     string
	ScopeKey string
	Target   routes.Target
	Record   Record
}

// Config assembles a Service.
type Config struct {
	Composer   *runtime.Composer
	Engine     *renderer.Engine
	Backfiller Backfiller
	// MetricsWindow bounds the rolling latency buffer; zero uses the
	// default.
	MetricsWindow int
	// BackfillCooldown spaces per-tenant backfill checks; zero uses the
	// default.
	BackfillCooldown time.Duration
	Logger           logging.Logger
}

// Service runs the preview pipeline.
type Service struct {
	composer   *runtime.Composer
	engine     *renderer.Engine
	backfiller Backfiller
	guard      *cooldownGuard
	metrics    *Recorder
	logger     logging.Logger
}

// NewService creates the orchestrator.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		composer:   cfg.Composer,
		engine:     cfg.Engine,
		backfiller: cfg.Backfiller,
		guard:      newCooldownGuard(cfg.BackfillCooldown),
		metrics:    NewRecorder(cfg.MetricsWindow),
		logger:     logger.WithComponent("preview"),
	}
}

// Metrics exposes the rolling latency recorder.
func (s *Service) Metrics() *Recorder { return s.metrics }

// Serve runs one preview request through the full pipeline and records
// its timing profile.
func (s *Service) Serve(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	target := routes.Resolve(req.Page, req.Path)

	s.maybeBackfill(ctx, req.TenantID)

	phases := make(map[string]time.Duration, 3)

	composeStart := time.Now()
	rc, err := s.composer.Compose(ctx, req.TenantID, target.PageID)
	phases[PhaseCompose] = time.Since(composeStart)
	if err != nil {
		return nil, err
	}

	enrichStart := time.Now()
	runtime.Enrich(rc, runtime.EnrichOptions{
		Target:          target,
		Viewport:        req.Viewport,
		ThemeOverride:   req.ThemeOverride,
		VersionOverride: req.VersionOverride,
		Identity:        req.Identity,
	})
	phases[PhaseEnrich] = time.Since(enrichStart)

	key := scope.Key(scope.Coordinates{
		TenantID:     req.TenantID,
		ThemeID:      rc.Theme.ID,
		ThemeVersion: rc.Theme.Version,
		ThemeFolder:  rc.Theme.Folder,
		TemplateID:   target.PageID,
		TemplatePath: themes.PageTemplatePath(target.PageID),
		ViewsPath:    themes.ViewsDir,
		Viewport:     req.Viewport,
	})

	renderStart := time.Now()
	html, err := s.engine.Render(ctx, rc, renderer.Options{
		Viewport:    req.Viewport,
		Hooks:       req.Hooks,
		Refresh:     req.Refresh,
		LocalOrigin: req.LocalOrigin,
	})
	phases[PhaseRender] = time.Since(renderStart)
	if err != nil {
		return nil, err
	}

	rec := Record{
		TenantID:     req.TenantID,
		ThemeID:      rc.Theme.ID,
		ThemeVersion: rc.Theme.Version,
		PageID:       target.PageID,
		Viewport:     viewportOf(req.Viewport),
		Phases:       phases,
		Total:        time.Since(started),
		At:           started,
	}
	s.metrics.Add(rec)
	s.logger.Debug(ctx, "preview rendered",
		"tenant", req.TenantID, "page", target.PageID, "scope", key,
		"total_ms", float64(rec.Total)/float64(time.Millisecond))

	return &Result{HTML: html, ScopeKey: key, Target: target, Record: rec}, nil
}

// maybeBackfill runs the minimum-data check unless the tenant is inside
// its cooldown window. Backfill failures never block a render.
func (s *Service) maybeBackfill(ctx context.Context, tenantID string) {
	if s.backfiller == nil || !s.guard.allow(tenantID, time.Now()) {
		return
	}
	if err := s.backfiller.EnsureMinimum(ctx, tenantID); err != nil {
		s.logger.Warn(ctx, err, "seed backfill failed", "tenant", tenantID)
	}
}

func viewportOf(v string) string {
	if v == "" {
		return scope.DefaultViewport
	}
	return v
}
