package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain/feedback"
	"github.com/Strob0t/PropertyHub/internal/domain/support"
)

// OpenSupportTicket handles POST /api/v1/support/ticket
func (h *Handlers) OpenSupportTicket(w http.ResponseWriter, r *http.Request) {
	handleCreate("ticket", h.Support.Open)(w, r)
}

// OpenSupportTicketFor handles POST /api/v1/support/ticketbyadmin
func (h *Handlers) OpenSupportTicketFor(w http.ResponseWriter, r *http.Request) {
	handleCreate("ticket", h.Support.OpenFor)(w, r)
}

// MySupportTickets handles GET /api/v1/support/mytickets
func (h *Handlers) MySupportTickets(w http.ResponseWriter, r *http.Request) {
	handlePage("tickets", support.PageSize, h.Support.Mine)(w, r)
}

// ListSupportTickets handles GET /api/v1/support/tickets
func (h *Handlers) ListSupportTickets(w http.ResponseWriter, r *http.Request) {
	handlePage("tickets", support.PageSize, h.Support.List)(w, r)
}

// OpenSupportTickets handles GET /api/v1/support/tickets-open
func (h *Handlers) OpenSupportTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Support.RecentOpen(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"tickets": tickets})
}

// UpdateSupportTicket handles PUT /api/v1/support/ticket/{ticketId}
func (h *Handlers) UpdateSupportTicket(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[support.UpdateStatusRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Support.UpdateStatus(r.Context(), urlParam(r, "ticketId"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"ticket": t})
}

// SendFeedback handles POST /api/v1/feedback
func (h *Handlers) SendFeedback(w http.ResponseWriter, r *http.Request) {
	handleCreate("feedback", h.Feedback.Create)(w, r)
}

// ListFeedback handles GET /api/v1/feedback
func (h *Handlers) ListFeedback(w http.ResponseWriter, r *http.Request) {
	handlePage("feedbacks", feedback.PageSize, h.Feedback.List)(w, r)
}

// GetFeedback handles GET /api/v1/feedback/{feedbackId}
func (h *Handlers) GetFeedback(w http.ResponseWriter, r *http.Request) {
	f, err := h.Feedback.Get(r.Context(), urlParam(r, "feedbackId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"feedback": f})
}

// UpdateFeedback handles PUT /api/v1/feedback/{feedbackId}
func (h *Handlers) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	handleAction("feedbackId", "Feedback updated", h.Feedback.Update)(w, r)
}

// DeleteFeedback handles DELETE /api/v1/feedback/{feedbackId}
func (h *Handlers) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := h.Feedback.Delete(r.Context(), urlParam(r, "feedbackId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Feedback deleted"})
}
