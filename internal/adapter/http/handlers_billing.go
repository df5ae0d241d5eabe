package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
)

// MyBills handles GET /api/v1/bills/mybills
func (h *Handlers) MyBills(w http.ResponseWriter, r *http.Request) {
	handlePage("bills", domain.DefaultPageSize, h.Billing.MyBills)(w, r)
}

// ListBills handles GET /api/v1/bills/all?status=paid|unpaid
func (h *Handlers) ListBills(w http.ResponseWriter, r *http.Request) {
	p, err := h.Billing.List(r.Context(), billing.Status(r.URL.Query().Get("status")), pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "bills", p)
}

// GenerateRent handles POST /api/v1/bills/{id}/rent
func (h *Handlers) GenerateRent(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.Billing.GenerateRent)
}

// GenerateDeposit handles POST /api/v1/bills/{id}/deposit
func (h *Handlers) GenerateDeposit(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.Billing.GenerateDeposit)
}

// generate reports repeated and vacant generations as successful no-ops.
func (h *Handlers) generate(w http.ResponseWriter, r *http.Request, gen func(context.Context, string) (billing.GenerateResult, error)) {
	res, err := gen(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Generated() {
		status = http.StatusCreated
	}
	writeOK(w, status, envelope{
		"message":          res.Message(),
		"outcome":          res.Outcome,
		"alreadyGenerated": res.Outcome == billing.OutcomeAlreadyGenerated,
		"bill":             res.Bill,
	})
}

// UpdateBill handles PUT /api/v1/bills/{id}/update
func (h *Handlers) UpdateBill(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[billing.UpdateStatusRequest](w, r)
	if !ok {
		return
	}
	b, err := h.Billing.UpdateStatus(r.Context(), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Bill updated", "bill": b})
}
