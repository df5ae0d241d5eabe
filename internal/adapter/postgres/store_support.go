package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/support"
)

const supportColumns = `t.id, t.external_id, t.client_id, t.opened_by, t.status, t.title, t.description,
	COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.role, ''), COALESCE(c.company_name, ''),
	t.created_at, t.updated_at`

const supportFrom = ` FROM support_tickets t
	LEFT JOIN users u ON u.id = t.opened_by
	LEFT JOIN clients c ON c.id = t.client_id`

func scanSupportTicket(row scannable) (support.Ticket, error) {
	var t support.Ticket
	err := row.Scan(&t.ID, &t.ExternalID, &t.ClientID, &t.OpenedBy, &t.Status, &t.Title, &t.Description,
		&t.OpenerName, &t.OpenerEmail, &t.OpenerRole, &t.CompanyName, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) CreateSupportTicket(ctx context.Context, t *support.Ticket) error {
	assignIDs(&t.ID, &t.ExternalID)
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = support.StatusOpen
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO support_tickets (id, external_id, client_id, opened_by, status, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		t.ID, t.ExternalID, t.ClientID, t.OpenedBy, string(t.Status), t.Title, t.Description, now)
	if err != nil {
		return fmt.Errorf("create support ticket: %w", err)
	}
	return nil
}

func (s *Store) ListSupportTickets(ctx context.Context, f support.Filter, page domain.PageRequest) ([]support.Ticket, int, error) {
	const where = ` WHERE ($1 = '' OR t.opened_by::text = $1) AND ($2 = '' OR t.status = $2)`

	total, err := s.count(ctx, `SELECT COUNT(*) FROM support_tickets t`+where, f.OpenedBy, string(f.Status))
	if err != nil {
		return nil, 0, fmt.Errorf("list support tickets: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+supportColumns+supportFrom+where+` ORDER BY t.created_at DESC LIMIT $3 OFFSET $4`,
		f.OpenedBy, string(f.Status), page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list support tickets: %w", err)
	}
	items, err := collect(rows, scanSupportTicket)
	if err != nil {
		return nil, 0, fmt.Errorf("scan support ticket: %w", err)
	}
	return items, total, nil
}

func (s *Store) UpdateSupportTicketStatus(ctx context.Context, externalID string, status support.Status) (*support.Ticket, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE support_tickets SET status = $2, updated_at = now() WHERE external_id = $1`,
		externalID, string(status))
	if err := execExpectOne(tag, err, "update support ticket %s", externalID); err != nil {
		return nil, err
	}
	t, err := scanSupportTicket(s.pool.QueryRow(ctx, `SELECT `+supportColumns+supportFrom+` WHERE t.external_id = $1`, externalID))
	if err != nil {
		return nil, notFoundWrap(err, "get support ticket %s", externalID)
	}
	return &t, nil
}
