package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cogniweave/cogniweave/internal/article"
	"github.com/cogniweave/cogniweave/internal/profile"
	"github.com/cogniweave/cogniweave/internal/storage"
	"github.com/cogniweave/cogniweave/internal/transform"
)

// TransformRequest is the body of POST /api/transform-content.
type TransformRequest struct {
	Content struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Sidebar string   `json:"sidebar"`
		Images  []string `json:"images"`
	} `json:"content"`
	Profile json.RawMessage `json:"profile"`
}

// ArticleTransform is a transform result together with its history record id.
type ArticleTransform struct {
	ID        string `json:"id"`
	ArticleID string `json:"articleId"`
	transform.Result
}

func handleTransformContent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		var req TransformRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if len(bytes.TrimSpace(req.Profile)) == 0 || bytes.Equal(bytes.TrimSpace(req.Profile), []byte("null")) {
			httpError(w, http.StatusBadRequest, "Invalid request body", "profile is required")
			return
		}
		p, err := profile.Parse(req.Profile)
		if err != nil {
			var verr *profile.ValidationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, "Invalid profile", verr.Errors)
			} else {
				httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, deps.Transformer.Transform(req.Content.Content, p))
	}
}

func handleListArticles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Library.List())
	}
}

func handleGetArticle(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := deps.Library.Get(chi.URLParam(r, "id"))
		if errors.Is(err, article.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Article not found", nil)
			return
		}
		if err != nil {
			deps.logger().Error("loading article", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to load article", nil)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleTransformArticle(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := deps.Library.Get(chi.URLParam(r, "id"))
		if errors.Is(err, article.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Article not found", nil)
			return
		}
		if err != nil {
			deps.logger().Error("loading article", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to transform content", nil)
			return
		}

		p, err := deps.Profile.Get()
		if err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to transform content")
			return
		}

		out, err := transformAndRecord(deps, a, p)
		if err != nil {
			deps.logger().Error("recording transform", "article", a.ID, "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to transform content", nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// transformAndRecord transforms an article and saves a history record.
func transformAndRecord(deps AppDeps, a article.Article, p profile.Profile) (ArticleTransform, error) {
	res := deps.Transformer.Transform(a.Content, p)

	profileJSON, err := json.Marshal(p)
	if err != nil {
		return ArticleTransform{}, fmt.Errorf("marshalling profile: %w", err)
	}
	rec := storage.TransformRecord{
		ID:          uuid.New().String(),
		CreatedAt:   deps.now().UTC(),
		ArticleID:   a.ID,
		Title:       a.Title,
		ChunkCount:  len(res.Chunks),
		TermCount:   len(res.SimplifiedTerms),
		Analogies:   len(res.Analogies) > 0,
		ProfileJSON: string(profileJSON),
	}
	if err := deps.Store.SaveTransform(rec); err != nil {
		return ArticleTransform{}, err
	}
	return ArticleTransform{ID: rec.ID, ArticleID: a.ID, Result: res}, nil
}

func handleListTransforms(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Store.ListTransforms(limit, offset)
		if err != nil {
			deps.logger().Error("listing transforms", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to list transforms", nil)
			return
		}
		if records == nil {
			records = []storage.TransformRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetTransform(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Store.GetTransform(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Transform not found", nil)
			return
		}
		if err != nil {
			deps.logger().Error("loading transform", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to load transform", nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleDeleteTransform(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteTransform(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Transform not found", nil)
			return
		}
		if err != nil {
			deps.logger().Error("deleting transform", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to delete transform", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
