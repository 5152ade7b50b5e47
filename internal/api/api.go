// Package api serves the upload and chat endpoints, the session endpoints
// backing the web UI, and the MCP tool server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
	"github.com/kalambet/gemsearch/internal/web"
)

const (
	defaultMaxUploadBytes = 50 << 20 // 50MB
	maxRequestBodySize    = 1 << 20  // 1MB
)

// ProviderFactory returns a provider client for a caller-supplied credential.
type ProviderFactory interface {
	ForKey(ctx context.Context, apiKey string) (remote.Provider, error)
}

// Deps holds what the HTTP handlers need.
type Deps struct {
	Providers ProviderFactory
	// Sessions is optional. Without it the session endpoints return 503 and
	// sessionId fields are ignored.
	Sessions       session.Store
	Logger         *slog.Logger
	MaxUploadBytes int64
}

// NewHandler returns the HTTP handler for the web server.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", handleUpload(deps))
		r.Post("/chat", handleChat(deps, validate))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Delete("/sessions/{id}/files", handleClearFiles(deps))
	})
	r.Handle("/*", web.Handler())

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
