package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// CreateStaff handles POST /api/v1/staff
func (h *Handlers) CreateStaff(w http.ResponseWriter, r *http.Request) {
	handleCreate("user", h.Staff.CreateStaff)(w, r)
}

// ListStaff handles GET /api/v1/staff
func (h *Handlers) ListStaff(w http.ResponseWriter, r *http.Request) {
	p, err := h.Staff.ListStaff(r.Context(), pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "staff", p)
}

// SetStaffProperties handles PUT /api/v1/staff/{userId}/properties
func (h *Handlers) SetStaffProperties(w http.ResponseWriter, r *http.Request) {
	handleAction("userId", "Properties updated", h.Staff.SetProperties)(w, r)
}

// SetStaffPermissions handles PUT /api/v1/staff/{userId}/permissions
func (h *Handlers) SetStaffPermissions(w http.ResponseWriter, r *http.Request) {
	handleAction("userId", "Permissions updated", h.Staff.SetPermissions)(w, r)
}

// SetStaffStatus handles PUT /api/v1/staff/{userId}/status
func (h *Handlers) SetStaffStatus(w http.ResponseWriter, r *http.Request) {
	handleAction("userId", "Status updated", h.Staff.SetStatus)(w, r)
}

// DeleteStaff handles DELETE /api/v1/staff/{userId}
func (h *Handlers) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.Staff.Delete(r.Context(), urlParam(r, "userId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "User deleted"})
}

// CreateTenant handles POST /api/v1/tenants
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	handleCreate("user", h.Staff.CreateTenant)(w, r)
}

// ListTenants handles GET /api/v1/tenants
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	p, err := h.Staff.ListTenants(r.Context(), pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "tenants", p)
}

// SetTenantStatus handles PUT /api/v1/tenants/{tenantId}/status
func (h *Handlers) SetTenantStatus(w http.ResponseWriter, r *http.Request) {
	handleAction("tenantId", "Status updated", h.Staff.SetStatus)(w, r)
}
