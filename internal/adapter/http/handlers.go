package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/presence"
	"github.com/Strob0t/PropertyHub/internal/service"
)

// UserLookup resolves a user of the caller's client by external id.
type UserLookup interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error)
}

// Session configures the session cookie written on login.
type Session struct {
	TTL          time.Duration
	CookieSecure bool
}

// Handlers holds the HTTP handlers with their service dependencies.
type Handlers struct {
	Auth          *service.AuthService
	Maintenance   *service.MaintenanceService
	Conversations *service.ConversationService
	Billing       *service.BillingService
	Subscriptions *service.SubscriptionService
	Notifications *service.NotificationService
	Notices       *service.NoticeService
	Properties    *service.PropertyService
	Staff         *service.StaffService
	Reports       *service.ReportService
	Support       *service.SupportService
	Feedback      *service.FeedbackService
	Dashboard     *service.DashboardService
	Clients       *service.ClientService
	Users         UserLookup
	Presence      presence.Tracker
	Session       Session
	// Ready reports whether the backing stores are reachable.
	Ready func(ctx context.Context) error
	Log   *zap.Logger
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, envelope{"status": "ok"})
}

// ReadyCheck handles GET /health/ready
func (h *Handlers) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.Ready(ctx); err != nil {
			h.Log.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeOK(w, http.StatusOK, envelope{"status": "ready"})
}

// UserOnline handles GET /api/v1/users/{userId}/online
func (h *Handlers) UserOnline(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetUserByExternalID(r.Context(), urlParam(r, "userId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	online := false
	if h.Presence != nil {
		if online, err = h.Presence.IsOnline(r.Context(), u.ID); err != nil {
			writeInternalError(w, r, err)
			return
		}
	}
	writeOK(w, http.StatusOK, envelope{"userId": u.ExternalID, "online": online})
}
