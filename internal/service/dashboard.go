package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropertyHub/internal/domain/dashboard"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// DashboardService aggregates the client overview.
type DashboardService struct {
	store database.DashboardStore
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(store database.DashboardStore) *DashboardService {
	return &DashboardService{store: store}
}

// Client returns property, occupancy and maintenance figures for the client
// scoped on ctx.
func (s *DashboardService) Client(ctx context.Context) (dashboard.ClientStats, error) {
	c, err := s.store.ClientCounts(ctx)
	if err != nil {
		return dashboard.ClientStats{}, fmt.Errorf("client counts: %w", err)
	}
	return dashboard.NewClientStats(c), nil
}
