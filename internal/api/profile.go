package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cogniweave/cogniweave/internal/profile"
)

// readBody reads a capped request body. On failure it has already written
// the error response.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return nil, false
		}
		httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return nil, false
	}
	return body, true
}

// writeProfileError maps profile errors to responses. Anything that is not a
// client error is logged and reported with the generic message.
func writeProfileError(w http.ResponseWriter, logger *slog.Logger, err error, generic string) {
	var verr *profile.ValidationError
	switch {
	case errors.Is(err, profile.ErrNoProfile):
		httpError(w, http.StatusNotFound, "No profile stored", nil)
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "Invalid profile", verr.Errors)
	case errors.Is(err, profile.ErrInvalidPatch):
		httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
	default:
		logger.Error(generic, "error", err)
		httpError(w, http.StatusInternalServerError, generic, nil)
	}
}

func decodeAnswers(w http.ResponseWriter, r *http.Request) (profile.Answers, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return profile.Answers{}, false
	}
	var answers profile.Answers
	if err := json.Unmarshal(body, &answers); err != nil {
		httpError(w, http.StatusBadRequest, "Invalid questionnaire data", err.Error())
		return profile.Answers{}, false
	}
	return answers, true
}

func handleGenerateProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, ok := decodeAnswers(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, profile.Derive(answers))
	}
}

func handleOnboarding(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, ok := decodeAnswers(w, r)
		if !ok {
			return
		}
		p := profile.Derive(answers)
		if err := deps.Profile.Set(p); err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to generate profile")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profile.Get()
		if err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to load profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		p, err := profile.Parse(body)
		if err != nil {
			var verr *profile.ValidationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, "Invalid profile", verr.Errors)
			} else {
				httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			}
			return
		}
		if err := deps.Profile.Set(p); err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to save profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		if !json.Valid(body) {
			httpError(w, http.StatusBadRequest, "Invalid request body", "body is not valid JSON")
			return
		}
		p, err := deps.Profile.Merge(body)
		if err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to update profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleResetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profile.Reset()
		if err != nil {
			writeProfileError(w, deps.logger(), err, "Failed to reset profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
