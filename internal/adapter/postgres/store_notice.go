package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/notice"
)

// noticeColumns resolves the stored property ids to external ids for display.
const noticeColumns = `n.id, n.external_id, n.client_id, n.author_id, n.title, n.body, n.date, n.event_date,
	n.property_ids,
	ARRAY(SELECT p.external_id FROM properties p WHERE p.id::text = ANY(n.property_ids) ORDER BY p.external_id),
	n.archived, COALESCE(n.archived_by::text, ''), n.created_at`

func scanNotice(row scannable) (notice.Notice, error) {
	var n notice.Notice
	err := row.Scan(&n.ID, &n.ExternalID, &n.ClientID, &n.AuthorID, &n.Title, &n.Body, &n.Date, &n.EventDate,
		&n.PropertyIDs, &n.Properties, &n.Archived, &n.ArchivedBy, &n.CreatedAt)
	return n, err
}

func (s *Store) CreateNotice(ctx context.Context, n *notice.Notice) error {
	assignIDs(&n.ID, &n.ExternalID)
	now := time.Now().UTC()
	n.CreatedAt = now
	if n.Date.IsZero() {
		n.Date = now
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notices (id, external_id, client_id, author_id, title, body, date, event_date, property_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.ExternalID, clientFromCtx(ctx), n.AuthorID, n.Title, n.Body, n.Date, n.EventDate,
		pgTextArray(n.PropertyIDs), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

func (s *Store) ListNotices(ctx context.Context, propertyIDs []string, page domain.PageRequest) ([]notice.Notice, int, error) {
	const where = ` WHERE n.client_id = $1 AND NOT n.archived
		AND ($2::boolean OR n.property_ids && $3::text[])`
	cid := clientFromCtx(ctx)
	all := propertyIDs == nil

	total, err := s.count(ctx, `SELECT COUNT(*) FROM notices n`+where, cid, all, pgTextArray(propertyIDs))
	if err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+noticeColumns+` FROM notices n`+where+` ORDER BY n.date DESC LIMIT $4 OFFSET $5`,
		cid, all, pgTextArray(propertyIDs), page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}
	items, err := collect(rows, scanNotice)
	if err != nil {
		return nil, 0, fmt.Errorf("scan notice: %w", err)
	}
	return items, total, nil
}

func (s *Store) ArchiveNotice(ctx context.Context, externalID, archivedBy string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notices SET archived = TRUE, archived_by = $3
		WHERE external_id = $1 AND client_id = $2 AND NOT archived`,
		externalID, clientFromCtx(ctx), nullIfEmpty(archivedBy))
	return execExpectOne(tag, err, "archive notice %s", externalID)
}
