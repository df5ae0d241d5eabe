package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/logger"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyBody   = 1 << 20 // 1 MB
)

// ResponseStore keeps replayable responses. Create must not overwrite an
// existing key.
type ResponseStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Create(ctx context.Context, key string, value []byte) (bool, error)
}

// idempotencyEntry stores a cached HTTP response.
type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency replays the stored response of a mutating request that
// repeats an Idempotency-Key. Keys are namespaced by caller, method and
// path, so one user can never replay another's response. Only successful
// responses are stored; store failures never fail the request.
func Idempotency(store ResponseStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(headerIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			key = idempotencyKey(r, key)
			l := logger.FromContext(r.Context(), log)

			if raw, ok, err := store.Get(r.Context(), key); err != nil {
				l.Warn("idempotency lookup failed", zap.Error(err))
			} else if ok {
				var cached idempotencyEntry
				if err := json.Unmarshal(raw, &cached); err == nil {
					for k, vals := range cached.Headers {
						for _, v := range vals {
							w.Header().Add(k, v)
						}
					}
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(cached.StatusCode)
					_, _ = w.Write(cached.Body)
					return
				}
				l.Warn("idempotency: corrupt cache entry")
			}

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 300 || rec.body.Len() > maxIdempotencyBody {
				return
			}
			data, err := json.Marshal(idempotencyEntry{
				StatusCode: rec.statusCode,
				Headers:    w.Header().Clone(),
				Body:       rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if _, err := store.Create(r.Context(), key, data); err != nil {
				l.Warn("idempotency: failed to store response", zap.Error(err))
			}
		})
	}
}

func idempotencyKey(r *http.Request, key string) string {
	caller := "anon"
	if id, ok := user.IdentityFromContext(r.Context()); ok {
		caller = id.UserID
	}
	return "idem." + caller + "." + r.Method + "." + r.URL.Path + "." + key
}

// responseRecorder wraps http.ResponseWriter to capture the response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
