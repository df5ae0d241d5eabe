package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
)

const billColumns = `b.id, b.external_id, b.client_id, b.property_id, b.apartment_id, b.tenant_id,
	b.type, b.month, b.year, b.period, b.amount, b.description, b.status, b.date, b.created_at,
	a.external_id, p.name, u.name`

const billFrom = ` FROM bills b
	JOIN apartments a ON a.id = b.apartment_id
	JOIN properties p ON p.id = b.property_id
	JOIN users u ON u.id = b.tenant_id`

func scanBill(row scannable) (billing.Bill, error) {
	var b billing.Bill
	err := row.Scan(&b.ID, &b.ExternalID, &b.ClientID, &b.PropertyID, &b.ApartmentID, &b.TenantID,
		&b.Type, &b.Month, &b.Year, &b.Period, &b.Amount, &b.Description, &b.Status, &b.Date, &b.CreatedAt,
		&b.ApartmentExternalID, &b.PropertyName, &b.TenantName)
	return b, err
}

// InsertBillIfAbsent leans on uq_bills_cycle so that concurrent generation
// for one cycle writes a single row. Bills carry their own client id because
// the scheduler runs unscoped.
func (s *Store) InsertBillIfAbsent(ctx context.Context, b *billing.Bill) (bool, error) {
	assignIDs(&b.ID, &b.ExternalID)
	now := time.Now().UTC()
	if b.Date.IsZero() {
		b.Date = now
	}
	if b.Status == "" {
		b.Status = billing.StatusUnpaid
	}
	b.CreatedAt = now

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bills (id, external_id, client_id, property_id, apartment_id, tenant_id,
		                   type, month, year, period, amount, description, status, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (apartment_id, month, year, period, type) DO NOTHING
		RETURNING id`,
		b.ID, b.ExternalID, b.ClientID, b.PropertyID, b.ApartmentID, b.TenantID,
		b.Type, b.Month, b.Year, b.Period, b.Amount, b.Description, b.Status, b.Date, b.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert bill: %w", err)
	}
	return true, nil
}

func (s *Store) ListBills(ctx context.Context, filter billing.Filter, page domain.PageRequest) ([]billing.Bill, int, error) {
	const where = ` WHERE b.client_id = $1
		AND ($2 = '' OR b.tenant_id::text = $2)
		AND ($3 = '' OR b.status = $3)`
	cid := clientFromCtx(ctx)

	total, err := s.count(ctx, `SELECT COUNT(*) FROM bills b`+where, cid, filter.TenantID, string(filter.Status))
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+billColumns+billFrom+where+` ORDER BY b.date DESC, b.created_at DESC LIMIT $4 OFFSET $5`,
		cid, filter.TenantID, string(filter.Status), page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	bills, err := collect(rows, scanBill)
	if err != nil {
		return nil, 0, fmt.Errorf("scan bill: %w", err)
	}
	return bills, total, nil
}

func (s *Store) UpdateBillStatus(ctx context.Context, externalID string, status billing.Status) (*billing.Bill, error) {
	cid := clientFromCtx(ctx)
	tag, err := s.pool.Exec(ctx,
		`UPDATE bills SET status = $3 WHERE external_id = $1 AND client_id = $2`, externalID, cid, status)
	if err := execExpectOne(tag, err, "update bill %s", externalID); err != nil {
		return nil, err
	}
	b, err := scanBill(s.pool.QueryRow(ctx,
		`SELECT `+billColumns+billFrom+` WHERE b.external_id = $1 AND b.client_id = $2`, externalID, cid))
	if err != nil {
		return nil, notFoundWrap(err, "get bill %s", externalID)
	}
	return &b, nil
}
