package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/feedback"
)

const feedbackColumns = `f.id, f.external_id, COALESCE(f.author_id::text, ''),
	COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
	f.message, f.star, f.read, f.created_at`

const feedbackFrom = ` FROM feedback f LEFT JOIN users u ON u.id = f.author_id`

func scanFeedback(row scannable) (feedback.Feedback, error) {
	var f feedback.Feedback
	err := row.Scan(&f.ID, &f.ExternalID, &f.AuthorID, &f.AuthorName, &f.AuthorEmail, &f.AuthorRole,
		&f.Message, &f.Star, &f.Read, &f.CreatedAt)
	return f, err
}

func (s *Store) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	assignIDs(&f.ID, &f.ExternalID)
	f.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (id, external_id, author_id, message, star, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.ExternalID, nullIfEmpty(f.AuthorID), f.Message, f.Star, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (s *Store) ListFeedback(ctx context.Context, page domain.PageRequest) ([]feedback.Feedback, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM feedback`)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+feedbackColumns+feedbackFrom+` ORDER BY f.created_at DESC LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	items, err := collect(rows, scanFeedback)
	if err != nil {
		return nil, 0, fmt.Errorf("scan feedback: %w", err)
	}
	return items, total, nil
}

func (s *Store) GetFeedback(ctx context.Context, externalID string) (*feedback.Feedback, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE feedback SET read = TRUE WHERE external_id = $1`, externalID)
	if err := execExpectOne(tag, err, "get feedback %s", externalID); err != nil {
		return nil, err
	}
	f, err := scanFeedback(s.pool.QueryRow(ctx, `SELECT `+feedbackColumns+feedbackFrom+` WHERE f.external_id = $1`, externalID))
	if err != nil {
		return nil, notFoundWrap(err, "get feedback %s", externalID)
	}
	return &f, nil
}

func (s *Store) UpdateFeedback(ctx context.Context, externalID string, req *feedback.Request) error {
	tag, err := s.pool.Exec(ctx, `UPDATE feedback SET message = $2, star = $3 WHERE external_id = $1`,
		externalID, req.Message, req.Star)
	return execExpectOne(tag, err, "update feedback %s", externalID)
}

func (s *Store) DeleteFeedback(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feedback WHERE external_id = $1`, externalID)
	return execExpectOne(tag, err, "delete feedback %s", externalID)
}
