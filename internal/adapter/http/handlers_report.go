package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Strob0t/PropertyHub/internal/adapter/xlsx"
)

// MaintenanceReport handles GET /api/v1/reports/maintenance.xlsx
func (h *Handlers) MaintenanceReport(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, "maintenance.xlsx", h.Reports.Maintenance)
}

// BillsReport handles GET /api/v1/reports/bills.xlsx
func (h *Handlers) BillsReport(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, "bills.xlsx", h.Reports.Bills)
}

func (h *Handlers) report(w http.ResponseWriter, r *http.Request, filename string, render func(context.Context) ([]byte, error)) {
	data, err := render(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
