package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropertyHub/internal/domain/dashboard"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
)

func (s *Store) ClientCounts(ctx context.Context) (dashboard.Counts, error) {
	cid := clientFromCtx(ctx)
	c := dashboard.Counts{Tickets: map[maintenance.Status]int{}}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM properties WHERE client_id = $1 AND NOT archived),
			(SELECT COUNT(*) FROM apartments WHERE client_id = $1),
			(SELECT COUNT(*) FROM apartments WHERE client_id = $1 AND tenant_id IS NOT NULL)`, cid,
	).Scan(&c.Properties, &c.Apartments, &c.RentedApartments)
	if err != nil {
		return c, fmt.Errorf("client counts: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM maintenance_tickets WHERE client_id = $1 GROUP BY status`, cid)
	if err != nil {
		return c, fmt.Errorf("ticket counts: %w", err)
	}
	type statusCount struct {
		status maintenance.Status
		n      int
	}
	counts, err := collect(rows, func(row scannable) (statusCount, error) {
		var sc statusCount
		err := row.Scan(&sc.status, &sc.n)
		return sc, err
	})
	if err != nil {
		return c, fmt.Errorf("scan ticket counts: %w", err)
	}
	for _, sc := range counts {
		c.Tickets[sc.status] = sc.n
	}
	return c, nil
}
