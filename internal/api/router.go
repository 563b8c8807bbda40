// Package api exposes profile derivation and content transformation over
// HTTP and MCP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cogniweave/cogniweave/internal/article"
	"github.com/cogniweave/cogniweave/internal/profile"
	"github.com/cogniweave/cogniweave/internal/storage"
	"github.com/cogniweave/cogniweave/internal/transform"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Store       *storage.Store
	Profile     *profile.Manager
	Library     *article.Library
	Transformer *transform.Transformer
	// Token enables bearer auth on everything except /health when set.
	Token  string
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d AppDeps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewAppHandler builds the HTTP router.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Transformer == nil {
		deps.Transformer = transform.New(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.logger()))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Post("/api/profile/generate", handleGenerateProfile(deps))
		r.Post("/api/onboarding/generate", handleOnboarding(deps))
		r.Post("/api/transform-content", handleTransformContent(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Put("/profile", handlePutProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))
		r.Post("/profile/reset", handleResetProfile(deps))

		r.Get("/articles", handleListArticles(deps))
		r.Get("/articles/{id}", handleGetArticle(deps))
		r.Post("/articles/{id}/transform", handleTransformArticle(deps))

		r.Get("/transforms", handleListTransforms(deps))
		r.Get("/transforms/{id}", handleGetTransform(deps))
		r.Delete("/transforms/{id}", handleDeleteTransform(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func httpError(w http.ResponseWriter, code int, msg string, details any) {
	writeJSON(w, code, errorResponse{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
