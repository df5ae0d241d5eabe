package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
)

// CreateMaintenance handles POST /api/v1/maintenance/create
func (h *Handlers) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[maintenance.CreateRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Maintenance.Create(r.Context(), actor(r), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{
		"message":      "Maintenance request created",
		"maintenance":  res.Ticket,
		"conversation": res.Conversation,
	})
}

// ListMaintenance handles GET /api/v1/maintenance/list
func (h *Handlers) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	handlePage("maintenance", domain.DefaultPageSize, h.Maintenance.List)(w, r)
}

// UpdateMaintenance handles PUT /api/v1/maintenance/{id}/update
func (h *Handlers) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[maintenance.UpdateStatusRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Maintenance.UpdateStatus(r.Context(), actor(r), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Maintenance updated", "maintenance": t})
}
