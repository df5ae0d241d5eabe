package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/logger"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// pageRequest reads ?page= and ?query= with the given page size.
func pageRequest(r *http.Request, size int) domain.PageRequest {
	q := r.URL.Query()
	return domain.NewPageRequest(q.Get("page"), strings.TrimSpace(q.Get("query")), size)
}

// actor returns the identity stored by middleware.Authenticate. Routes that
// call it are always mounted behind that middleware.
func actor(r *http.Request) user.Identity {
	id, _ := user.IdentityFromContext(r.Context())
	return id
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// envelope is a success response; the success flag is added on write.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to write JSON response", zap.Error(err))
	}
}

// writeOK writes {"success":true, ...fields}.
func writeOK(w http.ResponseWriter, status int, fields envelope) {
	if fields == nil {
		fields = envelope{}
	}
	fields["success"] = true
	writeJSON(w, status, fields)
}

// writePage writes a page of items under key along with its position.
func writePage[T any](w http.ResponseWriter, key string, p domain.Page[T]) {
	writeOK(w, http.StatusOK, envelope{
		key:           p.Items,
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		"total":       p.Total,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// writeDomainError maps an error onto its status code. Sentinel details are
// shown to the caller; anything unexpected is logged and hidden.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, detailOr(err, domain.ErrValidation, "invalid request"))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, detailOr(err, domain.ErrUnauthorized, "you are not authorized"))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, detailOr(err, domain.ErrNotFound, "resource not found"))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, detailOr(err, domain.ErrConflict, "resource already exists"))
	default:
		writeInternalError(w, r, err)
	}
}

func detailOr(err, sentinel error, fallback string) string {
	if d := domain.Detail(err, sentinel); d != "" {
		return d
	}
	return fallback
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), zap.L()).Error("request failed",
		zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
}
