// Package middleware provides the HTTP middleware chain for PropertyHub.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/service"
)

// CookieName is the cookie that carries the session token.
const CookieName = "accessToken"

// TokenVerifier resolves session tokens into identities.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (user.Identity, error)
	Revoke(ctx context.Context, token string) error
}

// Authenticate verifies the session token and stores the caller's identity
// in the request context. The token is read from the accessToken cookie
// first, then from the Authorization header. An expired token is revoked
// before the request fails so it leaves the user's token ring.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, false)
			if token == "" {
				unauthorized(w, "you are not authorized")
				return
			}

			id, err := tokens.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrTokenExpired) {
					_ = tokens.Revoke(r.Context(), token)
				}
				ClearCookie(w)
				unauthorized(w, "you are not authorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(user.ContextWithIdentity(r.Context(), id)))
		})
	}
}

// TokenFromRequest extracts the session token. allowQuery also accepts a
// ?token= parameter, which browsers need for the websocket handshake.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// SetCookie stores the session token in the client's cookie jar.
func SetCookie(w http.ResponseWriter, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Identity returns the verified identity stored by Authenticate.
func Identity(ctx context.Context) (user.Identity, bool) {
	return user.IdentityFromContext(ctx)
}

func unauthorized(w http.ResponseWriter, msg string) {
	fail(w, http.StatusUnauthorized, msg)
}

// fail writes the standard failure envelope.
func fail(w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Message: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
