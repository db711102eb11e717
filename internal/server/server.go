// Package server exposes the preview simulator over HTTP: the wildcard
// preview route, theme asset serving, the latency baseline endpoint, and
// the live-reload websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/storefront-preview/previewkit/internal/apperr"
	"github.com/storefront-preview/previewkit/internal/logging"
	"github.com/storefront-preview/previewkit/internal/preview"
	"github.com/storefront-preview/previewkit/internal/watcher"
)

// Config assembles a Server.
type Config struct {
	Host          string
	Port          int
	ThemesRoot    string
	DefaultTenant string
	Preview       *preview.Service
	Cache         *TemplateCache
	Hub           *Hub
	Logger        logging.Logger
}

// Server is the HTTP front of the simulator.
type Server struct {
	cfg    Config
	router chi.Router
	logger logging.Logger
}

// New builds the server and its route table.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger.WithComponent("server")}
	s.router = s.routes()
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(TenantResolver(s.cfg.DefaultTenant))
		r.Get("/preview", s.handlePreview)
		r.Get("/preview/*", s.handlePreview)
	})

	r.Get("/themes/{theme}/public/*", s.handleThemeAsset)
	r.Get("/api/metrics/baseline", s.handleMetricsBaseline)
	if s.cfg.Hub != nil {
		r.Get("/livereload", s.cfg.Hub.Handle)
	}
	return r
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info(ctx, "preview server listening", "addr", s.Addr())

	select {
	case <-ctx.Done():
		if s.cfg.Hub != nil {
			s.cfg.Hub.CloseAll()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// OnThemeChange is the watcher callback: cached templates are dropped and
// connected browsers reload.
func (s *Server) OnThemeChange(events []watcher.ChangeEvent) {
	if s.cfg.Cache != nil {
		s.cfg.Cache.Clear()
	}

	ctx := context.Background()
	theme := ""
	if len(events) > 0 {
		theme = events[0].Theme(s.cfg.ThemesRoot)
	}
	s.logger.Info(ctx, "theme files changed", "theme", theme, "files", len(events))

	if s.cfg.Hub != nil {
		s.cfg.Hub.Broadcast(ctx, ReloadMessage{Type: "full_reload", Target: theme})
	}
}

// handlePreview renders one preview request.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := s.cfg.Preview.Serve(r.Context(), preview.Request{
		TenantID:        TenantFromContext(r.Context()),
		Page:            q.Get("page"),
		Path:            strings.TrimPrefix(r.URL.Path, "/preview"),
		Viewport:        q.Get("viewport"),
		ThemeOverride:   q.Get("theme"),
		VersionOverride: q.Get("theme_version"),
		Refresh:         q.Get("refresh") != "",
		LocalOrigin:     localOrigin(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Scope-Key", res.ScopeKey)
	_, _ = w.Write([]byte(res.HTML))
}

// handleThemeAsset serves a file from the theme's public directory.
func (s *Server) handleThemeAsset(w http.ResponseWriter, r *http.Request) {
	theme := chi.URLParam(r, "theme")
	rest := chi.URLParam(r, "*")

	// Reject traversal out of the public directory.
	clean := filepath.Clean("/" + rest)
	if strings.Contains(theme, "..") || strings.Contains(theme, "/") {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.cfg.ThemesRoot, theme, "public", clean))
}

// handleMetricsBaseline reports the rolling render-latency summary.
func (s *Server) handleMetricsBaseline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.cfg.Preview.Metrics().Baseline())
}

// errorResponse is the transport shape of a failed request.
type errorResponse struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	resp := errorResponse{OK: false, Status: status, Message: err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	}

	if status >= 500 {
		s.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// localOrigin reconstructs the origin browsers used to reach the server
// so production hosts in rendered HTML rewrite onto it.
func localOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
