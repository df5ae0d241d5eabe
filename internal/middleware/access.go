package middleware

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// AllowAccess restricts a route to callers holding one of the given roles.
func AllowAccess(roles ...user.Role) func(http.Handler) http.Handler {
	return gate(func(id user.Identity) bool { return id.HasRole(roles...) })
}

// DenyAccess rejects callers holding any of the given roles.
func DenyAccess(roles ...user.Role) func(http.Handler) http.Handler {
	return gate(func(id user.Identity) bool { return !id.HasRole(roles...) })
}

// RequirePermission rejects staff lacking p. Client owners hold every
// permission implicitly.
func RequirePermission(p user.Permission) func(http.Handler) http.Handler {
	return gate(func(id user.Identity) bool { return id.Can(p) })
}

// gate fails with 401 when there is no identity or allow rejects it.
func gate(allow func(user.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := user.IdentityFromContext(r.Context())
			if !ok || !allow(id) {
				unauthorized(w, "you are not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
