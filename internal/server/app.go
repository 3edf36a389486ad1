// Package server wires the certificate API: shared dependencies, the chi
// router, middleware and the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coagen/internal/audit"
	"coagen/internal/auth"
	"coagen/internal/coa"
	"coagen/internal/handlers/certificates"
	"coagen/internal/preview"
	"coagen/internal/response"
	"coagen/internal/store"
	"coagen/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds shared dependencies for the application.
type App struct {
	Store     *store.Store
	Hub       *websocket.Hub
	Audit     *audit.Logger
	Generator *coa.Generator
	Renderer  *preview.Renderer
	Keyring   *auth.Keyring
	Logger    *zap.Logger

	// MaxUploadBytes limits multipart uploads.
	MaxUploadBytes int64
	// RateLimit is the number of /api/ requests allowed per client per
	// minute. Zero disables limiting.
	RateLimit int

	limiter *RateLimiter
}

func (a *App) log() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Handler returns the certificate handler set backed by the app.
func (a *App) Handler() *certificates.Handler {
	return &certificates.Handler{
		Store:          a.Store,
		Hub:            a.Hub,
		Audit:          a.Audit,
		Generator:      a.Generator,
		Renderer:       a.Renderer,
		Logger:         a.log().Named("api"),
		MaxUploadBytes: a.MaxUploadBytes,
	}
}

// Routes builds the router.
func (a *App) Routes() http.Handler {
	if a.limiter == nil {
		a.limiter = NewRateLimiter()
	}
	h := a.Handler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(a.log().Named("http")))
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware(a.limiter, a.RateLimit, time.Minute))
	r.Use(RequireAPIKey(a.Keyring))
	r.Use(GzipMiddleware)

	r.Get("/health", a.health)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(a.Hub, w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/coas", h.CreateCOA)
		r.Post("/coas/batch", h.CreateBatch)

		r.Get("/batches/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.GetBatch(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/batches/{id}/archive", func(w http.ResponseWriter, r *http.Request) {
			h.BatchArchive(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/batches/{id}/report", func(w http.ResponseWriter, r *http.Request) {
			h.BatchReport(w, r, chi.URLParam(r, "id"))
		})

		r.Get("/files/{name}", func(w http.ResponseWriter, r *http.Request) {
			h.DownloadFile(w, r, chi.URLParam(r, "name"))
		})
		r.Get("/files/{name}/preview", func(w http.ResponseWriter, r *http.Request) {
			h.PreviewFile(w, r, chi.URLParam(r, "name"))
		})
		r.Get("/files/{name}/sheet", func(w http.ResponseWriter, r *http.Request) {
			h.SpecificationSheet(w, r, chi.URLParam(r, "name"))
		})

		r.Get("/templates", h.ListTemplates)
		r.Get("/templates/{code}/fields", func(w http.ResponseWriter, r *http.Request) {
			h.TemplateFields(w, r, chi.URLParam(r, "code"))
		})
		r.Get("/sheets/template", h.InputTemplate)

		r.Post("/fill", h.Fill)
		r.Post("/composition", h.Composition)
		r.Post("/simulation", h.Simulate)

		r.Get("/history", h.History)
		r.Get("/audit", h.AuditLog)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := a.Store.DB().PingContext(r.Context()); err != nil {
		status = "degraded"
	}
	clients := 0
	if a.Hub != nil {
		clients = a.Hub.Clients()
	}
	response.JSON(w, map[string]any{
		"status":     status,
		"ws_clients": clients,
		"policy":     a.Generator.Policy().Name(),
		"mode":       a.Generator.Filler().Mode().String(),
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log().Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
