package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropertyHub/internal/adapter/xlsx"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

const reportBatch = 500

// ReportService exports a client's tickets and bills as spreadsheets.
type ReportService struct {
	store database.Store
}

// NewReportService creates a report service.
func NewReportService(store database.Store) *ReportService {
	return &ReportService{store: store}
}

// Maintenance renders every ticket of the caller's client.
func (s *ReportService) Maintenance(ctx context.Context) ([]byte, error) {
	tickets, err := collectPages(func(page domain.PageRequest) ([]maintenance.Ticket, int, error) {
		return s.store.ListTickets(ctx, maintenance.Scope{}, page)
	})
	if err != nil {
		return nil, fmt.Errorf("maintenance report: %w", err)
	}
	sheet := xlsx.Sheet{
		Name: "Maintenance",
		Columns: []xlsx.Column{
			{Title: "Maintenance ID", Width: 16},
			{Title: "Property", Width: 24},
			{Title: "Apartment", Width: 12},
			{Title: "Tenant", Width: 22},
			{Title: "Type", Width: 16},
			{Title: "Details", Width: 40},
			{Title: "Status", Width: 14},
			{Title: "Scheduled", Width: 14},
			{Title: "Created", Width: 14},
		},
	}
	for _, t := range tickets {
		var scheduled any
		if t.ScheduledFor != nil {
			scheduled = *t.ScheduledFor
		}
		sheet.Rows = append(sheet.Rows, []any{
			t.ExternalID, t.PropertyName, t.Floor + "-" + t.Door, t.TenantName,
			t.Type, t.Details, string(t.Status), scheduled, t.CreatedAt,
		})
	}
	return xlsx.Render(sheet)
}

// Bills renders every rent and deposit bill of the caller's client.
func (s *ReportService) Bills(ctx context.Context) ([]byte, error) {
	bills, err := collectPages(func(page domain.PageRequest) ([]billing.Bill, int, error) {
		return s.store.ListBills(ctx, billing.Filter{}, page)
	})
	if err != nil {
		return nil, fmt.Errorf("bills report: %w", err)
	}
	sheet := xlsx.Sheet{
		Name: "Bills",
		Columns: []xlsx.Column{
			{Title: "Bill ID", Width: 16},
			{Title: "Property", Width: 24},
			{Title: "Apartment", Width: 14},
			{Title: "Tenant", Width: 22},
			{Title: "Type", Width: 10},
			{Title: "Cycle", Width: 26},
			{Title: "Amount", Width: 12},
			{Title: "Status", Width: 10},
			{Title: "Date", Width: 14},
		},
	}
	for _, b := range bills {
		sheet.Rows = append(sheet.Rows, []any{
			b.ExternalID, b.PropertyName, b.ApartmentExternalID, b.TenantName, string(b.Type),
			fmt.Sprintf("%s %d (%s)", b.Month, b.Year, b.Period), b.Amount, string(b.Status), b.Date,
		})
	}
	return xlsx.Render(sheet)
}

// collectPages drains a paged listing.
func collectPages[T any](list func(domain.PageRequest) ([]T, int, error)) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		items, total, err := list(domain.PageRequest{Page: page, Size: reportBatch})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < reportBatch || len(out) >= total {
			return out, nil
		}
	}
}
