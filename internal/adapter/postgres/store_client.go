package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

const clientColumns = `c.id, c.external_id, COALESCE(c.owner_id::text, ''), c.company_name, c.subscribed,
	c.subscription_plan, c.subscription_valid_until, c.archived, c.created_at,
	COALESCE(o.name, ''), COALESCE(o.email, '')`

const clientFrom = ` FROM clients c LEFT JOIN users o ON o.id = c.owner_id`

func scanClient(row scannable) (user.Client, error) {
	var c user.Client
	err := row.Scan(&c.ID, &c.ExternalID, &c.OwnerID, &c.CompanyName, &c.Subscribed,
		&c.SubscriptionPlan, &c.SubscriptionValidUntil, &c.Archived, &c.CreatedAt,
		&c.OwnerName, &c.OwnerEmail)
	return c, err
}

func (s *Store) GetClient(ctx context.Context, id string) (*user.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+clientFrom+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get client %s", id)
	}
	return &c, nil
}

func (s *Store) GetClientByExternalID(ctx context.Context, externalID string) (*user.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+clientFrom+` WHERE c.external_id = $1`, externalID))
	if err != nil {
		return nil, notFoundWrap(err, "get client %s", externalID)
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context, page domain.PageRequest) ([]user.Client, int, error) {
	const where = ` WHERE $1 = '' OR c.company_name ILIKE '%' || $1 || '%'
		OR o.name ILIKE '%' || $1 || '%' OR c.external_id ILIKE '%' || $1 || '%'`

	total, err := s.count(ctx, `SELECT COUNT(*)`+clientFrom+where, page.Query)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+clientColumns+clientFrom+where+` ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`,
		page.Query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	items, err := collect(rows, scanClient)
	if err != nil {
		return nil, 0, fmt.Errorf("scan client: %w", err)
	}
	return items, total, nil
}

func (s *Store) SetClientArchived(ctx context.Context, clientID string, archived bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE clients SET archived = $2 WHERE id = $1`, clientID, archived)
	return execExpectOne(tag, err, "archive client %s", clientID)
}

func (s *Store) ClientUserIDs(ctx context.Context, clientID string) ([]string, error) {
	return s.userIDs(ctx, `SELECT id::text FROM users WHERE client_id = $1 ORDER BY created_at`, clientID)
}

func (s *Store) UserIDsByRole(ctx context.Context, role user.Role) ([]string, error) {
	return s.userIDs(ctx, `SELECT id::text FROM users WHERE role = $1 AND status IN ('ACTIVE', 'NEW') ORDER BY created_at`, string(role))
}

func (s *Store) userIDs(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	ids, err := collect(rows, func(row scannable) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	return ids, nil
}
