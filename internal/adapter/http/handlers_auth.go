package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/middleware"
)

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.RegisterRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.signedIn(w, http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.signedIn(w, http.StatusOK, resp)
}

func (h *Handlers) signedIn(w http.ResponseWriter, status int, resp *user.AuthResponse) {
	middleware.SetCookie(w, resp.Token, int(h.Session.TTL.Seconds()), h.Session.CookieSecure)
	writeOK(w, status, envelope{"token": resp.Token, "user": resp.User})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), actor(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.ClearCookie(w)
	writeOK(w, http.StatusOK, envelope{"message": "Logged out"})
}

// LogoutAll handles POST /api/v1/auth/logout-all
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.LogoutAll(r.Context(), actor(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.ClearCookie(w)
	writeOK(w, http.StatusOK, envelope{"message": "Logged out from all devices"})
}

// LogoutOthers handles POST /api/v1/auth/logout-others
func (h *Handlers) LogoutOthers(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.LogoutOthers(r.Context(), actor(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Logged out from other devices"})
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.Auth.Me(r.Context(), actor(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"user": p.User, "isSubscribed": p.Subscribed, "client": p.Client})
}

// ChangePassword handles PUT /api/v1/auth/password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdatePasswordRequest](w, r)
	if !ok {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), actor(r), &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.ClearCookie(w)
	writeOK(w, http.StatusOK, envelope{"message": "Password updated, please log in again"})
}
