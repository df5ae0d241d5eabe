package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
)

// CreateProperty handles POST /api/v1/properties
func (h *Handlers) CreateProperty(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[property.CreatePropertyRequest](w, r)
	if !ok {
		return
	}
	p, err := h.Properties.CreateProperty(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"property": p})
}

// ListProperties handles GET /api/v1/properties
func (h *Handlers) ListProperties(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.ListProperties(r.Context(), pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "properties", p)
}

// CreateApartment handles POST /api/v1/properties/{propertyId}/apartments
func (h *Handlers) CreateApartment(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[property.CreateApartmentRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Properties.CreateApartment(r.Context(), urlParam(r, "propertyId"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"apartment": a})
}

// ListApartments handles GET /api/v1/properties/{propertyId}/apartments
func (h *Handlers) ListApartments(w http.ResponseWriter, r *http.Request) {
	apts, err := h.Properties.ListApartments(r.Context(), urlParam(r, "propertyId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"apartments": apts})
}

// DeleteApartment handles DELETE /api/v1/properties/{propertyId}/apartments/{apartmentId}
func (h *Handlers) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	err := h.Properties.DeleteApartment(r.Context(), urlParam(r, "propertyId"), urlParam(r, "apartmentId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Apartment deleted"})
}

// AssignHome handles PUT /api/v1/tenants/{tenantId}/home
func (h *Handlers) AssignHome(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[property.AssignHomeRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Properties.AssignHome(r.Context(), urlParam(r, "tenantId"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Home assigned", "apartment": a})
}
