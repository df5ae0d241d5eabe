package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// ---------------------------------------------------------------------------
// Generic handler factories
// ---------------------------------------------------------------------------

// validator is implemented by every request body.
type validator interface {
	Validate() error
}

// handlePage creates a handler that lists a page of resources under key.
func handlePage[T any](key string, size int, listFn func(ctx context.Context, id user.Identity, page domain.PageRequest) (domain.Page[T], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := listFn(r.Context(), actor(r), pageRequest(r, size))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, key, p)
	}
}

// handleCreate creates a handler that decodes a JSON body, creates a
// resource and writes it under key with 201.
func handleCreate[Req any, Res any](key string, createFn func(ctx context.Context, id user.Identity, req *Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		res, err := createFn(r.Context(), actor(r), &req)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeOK(w, http.StatusCreated, envelope{key: res})
	}
}

// handleAction creates a handler for a mutation addressed by one URL
// parameter that answers with a message only.
func handleAction[Req any](param, message string, actFn func(ctx context.Context, id string, req *Req) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		if v, isV := any(&req).(validator); isV {
			if err := v.Validate(); err != nil {
				writeDomainError(w, r, err)
				return
			}
		}
		if err := actFn(r.Context(), urlParam(r, param), &req); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, envelope{"message": message})
	}
}
