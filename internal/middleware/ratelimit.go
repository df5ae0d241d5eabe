package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/Strob0t/PropertyHub/internal/config"
)

// RateLimit limits requests per client IP over the configured window.
// A zero request budget disables limiting.
func RateLimit(cfg config.RateLimit) func(http.Handler) http.Handler {
	return limitByIP(cfg.Requests, cfg.Window)
}

// AuthRateLimit is the tighter limit applied to login and registration.
func AuthRateLimit(cfg config.RateLimit) func(http.Handler) http.Handler {
	return limitByIP(cfg.AuthRequests, cfg.Window)
}

func limitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			fail(w, http.StatusTooManyRequests, "too many requests, please try again later")
		}),
	)
}
