package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p, err := h.Notifications.List(r.Context(), actor(r).UserID, pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "notifications", p)
}

// MarkNotificationRead handles PUT /api/v1/notifications/{notificationId}/read
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.MarkRead(r.Context(), actor(r).UserID, urlParam(r, "notificationId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead handles PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkAllRead(r.Context(), actor(r).UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "All notifications marked as read", "updated": n})
}
