package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

const ticketColumns = `t.id, t.external_id, t.client_id, t.property_id, t.apartment_id, t.tenant_id,
	t.type, t.details, t.status, t.scheduled_for, t.cost, t.created_at, t.updated_at,
	p.name, a.floor, a.door, u.name`

const ticketFrom = ` FROM maintenance_tickets t
	JOIN properties p ON p.id = t.property_id
	JOIN apartments a ON a.id = t.apartment_id
	JOIN users u ON u.id = t.tenant_id`

func scanTicket(row scannable) (maintenance.Ticket, error) {
	var t maintenance.Ticket
	err := row.Scan(&t.ID, &t.ExternalID, &t.ClientID, &t.PropertyID, &t.ApartmentID, &t.TenantID,
		&t.Type, &t.Details, &t.Status, &t.ScheduledFor, &t.Cost, &t.CreatedAt, &t.UpdatedAt,
		&t.PropertyName, &t.Floor, &t.Door, &t.TenantName)
	return t, err
}

func (s *Store) CreateTicket(ctx context.Context, t *maintenance.Ticket) error {
	assignIDs(&t.ID, &t.ExternalID)
	t.ClientID = user.ClientIDFromContext(ctx)
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = maintenance.StatusPending
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO maintenance_tickets
			(id, external_id, client_id, property_id, apartment_id, tenant_id, type, details, status, scheduled_for, cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.ExternalID, nullIfEmpty(t.ClientID), t.PropertyID, t.ApartmentID, t.TenantID,
		t.Type, t.Details, t.Status, t.ScheduledFor, t.Cost, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return conflictWrap(err, "create ticket")
	}
	return nil
}

func (s *Store) GetTicketByExternalID(ctx context.Context, externalID string) (*maintenance.Ticket, error) {
	t, err := scanTicket(s.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+ticketFrom+` WHERE t.external_id = $1 AND t.client_id = $2`,
		externalID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get ticket %s", externalID)
	}
	return &t, nil
}

// UpdateTicketStatus guards the transition in the WHERE clause, so of two
// concurrent updates on a live ticket at most one can move it to a terminal
// state and the other then observes the conflict.
func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID string, status maintenance.Status) (*maintenance.Ticket, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE maintenance_tickets SET status = $3, updated_at = now()
		WHERE id = $1 AND client_id = $2 AND status NOT IN ('COMPLETED', 'CANCELLED')`,
		ticketID, clientFromCtx(ctx), status)
	if err != nil {
		return nil, fmt.Errorf("update ticket %s: %w", ticketID, err)
	}

	t, err := scanTicket(s.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+ticketFrom+` WHERE t.id = $1 AND t.client_id = $2`, ticketID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "update ticket %s", ticketID)
	}
	if tag.RowsAffected() == 0 {
		if terr := maintenance.CheckTransition(t.Status, status); terr != nil {
			return nil, fmt.Errorf("update ticket %s: %w", ticketID, terr)
		}
		return nil, fmt.Errorf("update ticket %s: %w", ticketID, domain.ErrConflict)
	}
	return &t, nil
}

func (s *Store) ListTickets(ctx context.Context, scope maintenance.Scope, page domain.PageRequest) ([]maintenance.Ticket, int, error) {
	const where = ` WHERE t.client_id = $1
		AND ($2 = '' OR t.tenant_id::text = $2)
		AND (NOT $3 OR t.property_id::text = ANY($4::text[]))
		AND ($5 = '' OR t.type ILIKE '%' || $5 || '%' OR t.details ILIKE '%' || $5 || '%')`
	staffOnly := scope.StaffOnly || len(scope.PropertyIDs) > 0
	args := []any{clientFromCtx(ctx), scope.TenantID, staffOnly, pgTextArray(scope.PropertyIDs), page.Query}

	total, err := s.count(ctx, `SELECT COUNT(*) FROM maintenance_tickets t`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+ticketColumns+ticketFrom+where+` ORDER BY t.created_at DESC LIMIT $6 OFFSET $7`,
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	tickets, err := collect(rows, scanTicket)
	if err != nil {
		return nil, 0, fmt.Errorf("scan ticket: %w", err)
	}
	return tickets, total, nil
}
