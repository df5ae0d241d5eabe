package http

import "net/http"

// clientPageSize is the number of clients per page in the operator view.
const clientPageSize = 10

// ClientDashboard handles GET /api/v1/dashboard/client
func (h *Handlers) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Client(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"stats": stats})
}

// ListClients handles GET /api/v1/clients
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	handlePage("clients", clientPageSize, h.Clients.List)(w, r)
}

// GetClient handles GET /api/v1/clients/{clientId}
func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.Get(r.Context(), urlParam(r, "clientId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"client": c})
}

// ToggleClientArchive handles PUT /api/v1/clients/{clientId}/archive
func (h *Handlers) ToggleClientArchive(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.ToggleArchive(r.Context(), urlParam(r, "clientId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	msg := "Company restored"
	if c.Archived {
		msg = "Company archived"
	}
	writeOK(w, http.StatusOK, envelope{"message": msg, "client": c})
}
