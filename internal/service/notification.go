package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/notification"
	"github.com/Strob0t/PropertyHub/internal/port/broadcast"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// pushConcurrency bounds parallel real-time pushes for one fan-out.
const pushConcurrency = 8

// NotificationService persists notifications and pushes them to recipients
// that are online. The stored record is authoritative; pushes are best effort.
type NotificationService struct {
	store database.NotificationStore
	push  broadcast.Broadcaster
	log   *zap.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(store database.NotificationStore, push broadcast.Broadcaster, log *zap.Logger) *NotificationService {
	return &NotificationService{store: store, push: push, log: log.Named("notifications")}
}

// Notify stores one notification per draft and pushes each to its recipient.
func (s *NotificationService) Notify(ctx context.Context, drafts []notification.Draft) ([]notification.Notification, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	created, err := s.store.CreateNotifications(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(pushConcurrency)
	for i := range created {
		n := created[i]
		g.Go(func() error {
			s.push.ToUser(ctx, n.UserID, broadcast.EventNewNotification, n)
			return nil
		})
	}
	_ = g.Wait()
	return created, nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page domain.PageRequest) (domain.Page[notification.Notification], error) {
	items, total, err := s.store.ListNotifications(ctx, userID, page)
	if err != nil {
		return domain.Page[notification.Notification]{}, fmt.Errorf("list notifications: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, externalID string) error {
	return s.store.MarkNotificationRead(ctx, userID, externalID)
}

// MarkAllRead marks every unread notification of the user read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
