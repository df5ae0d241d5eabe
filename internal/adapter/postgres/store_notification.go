package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/notification"
)

const notificationColumns = `id, external_id, COALESCE(client_id::text, ''), user_id, message, href, status, created_at`

func scanNotification(row scannable) (notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.ExternalID, &n.ClientID, &n.UserID, &n.Message, &n.Href, &n.Status, &n.CreatedAt)
	return n, err
}

// CreateNotifications writes one record per draft in a single batch.
func (s *Store) CreateNotifications(ctx context.Context, drafts []notification.Draft) ([]notification.Notification, error) {
	if len(drafts) == 0 {
		return []notification.Notification{}, nil
	}
	now := time.Now().UTC()
	out := make([]notification.Notification, len(drafts))
	batch := &pgx.Batch{}
	for i, d := range drafts {
		n := notification.Notification{
			ClientID:  d.ClientID,
			UserID:    d.UserID,
			Message:   d.Message,
			Href:      d.Href,
			Status:    notification.StatusUnread,
			CreatedAt: now,
		}
		assignIDs(&n.ID, &n.ExternalID)
		out[i] = n
		batch.Queue(`
			INSERT INTO notifications (id, external_id, client_id, user_id, message, href, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.ID, n.ExternalID, nullIfEmpty(n.ClientID), n.UserID, n.Message, n.Href, n.Status, n.CreatedAt)
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for range drafts {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, page domain.PageRequest) ([]notification.Notification, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	items, err := collect(rows, scanNotification)
	if err != nil {
		return nil, 0, fmt.Errorf("scan notification: %w", err)
	}
	return items, total, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, externalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = 'read' WHERE external_id = $1 AND user_id = $2`, externalID, userID)
	return execExpectOne(tag, err, "mark notification %s read", externalID)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = 'read' WHERE user_id = $1 AND status = 'unread'`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
