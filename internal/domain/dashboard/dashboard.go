// Package dashboard aggregates the figures shown on a client's landing page.
package dashboard

import "github.com/Strob0t/PropertyHub/internal/domain/maintenance"

// Counts are the raw figures of one client.
type Counts struct {
	Properties       int
	Apartments       int
	RentedApartments int
	Tickets          map[maintenance.Status]int
}

// ClientStats is the client dashboard payload.
type ClientStats struct {
	TotalProperties       int     `json:"totalProperties"`
	TotalApartments       int     `json:"totalApartments"`
	RentedApartments      int     `json:"rentedApartments"`
	FreeApartments        int     `json:"freeApartments"`
	TotalMaintenances     int     `json:"totalMaintenances"`
	MaintenancePending    int     `json:"maintenancePending"`
	MaintenanceInProgress int     `json:"maintenanceInProgress"`
	MaintenanceCompleted  int     `json:"maintenanceCompleted"`
	MaintenanceCancelled  int     `json:"maintenanceCancelled"`
	PendingPercentage     float64 `json:"pendingPercentage"`
	InProgressPercentage  float64 `json:"inProgressPercentage"`
	CompletedPercentage   float64 `json:"completedPercentage"`
	CancelledPercentage   float64 `json:"cancelledPercentage"`
}

// NewClientStats derives the dashboard from raw counts. Percentages are 0
// while the client has no tickets.
func NewClientStats(c Counts) ClientStats {
	s := ClientStats{
		TotalProperties:       c.Properties,
		TotalApartments:       c.Apartments,
		RentedApartments:      c.RentedApartments,
		FreeApartments:        max(0, c.Apartments-c.RentedApartments),
		MaintenancePending:    c.Tickets[maintenance.StatusPending],
		MaintenanceInProgress: c.Tickets[maintenance.StatusInProgress],
		MaintenanceCompleted:  c.Tickets[maintenance.StatusCompleted],
		MaintenanceCancelled:  c.Tickets[maintenance.StatusCancelled],
	}
	for _, n := range c.Tickets {
		s.TotalMaintenances += n
	}
	if s.TotalMaintenances > 0 {
		pct := func(n int) float64 { return float64(n) / float64(s.TotalMaintenances) * 100 }
		s.PendingPercentage = pct(s.MaintenancePending)
		s.InProgressPercentage = pct(s.MaintenanceInProgress)
		s.CompletedPercentage = pct(s.MaintenanceCompleted)
		s.CancelledPercentage = pct(s.MaintenanceCancelled)
	}
	return s
}
