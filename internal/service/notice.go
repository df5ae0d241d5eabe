package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/notice"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// NoticeService publishes announcements to properties. Staff and tenants
// only see notices of their own properties.
type NoticeService struct {
	store database.Store
	now   func() time.Time
}

// NewNoticeService creates a notice service.
func NewNoticeService(store database.Store) *NoticeService {
	return &NoticeService{store: store, now: time.Now}
}

// Create publishes a notice to properties the author covers.
func (s *NoticeService) Create(ctx context.Context, actor user.Identity, req *notice.CreateRequest) (*notice.Notice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ids, err := s.store.ResolvePropertyIDs(ctx, req.Properties)
	if err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	for _, id := range ids {
		if !actor.CoversProperty(id) {
			return nil, fmt.Errorf("create notice: %w: property is outside your scope", domain.ErrUnauthorized)
		}
	}
	n := &notice.Notice{
		ClientID:    actor.ClientID,
		AuthorID:    actor.UserID,
		Title:       req.Title,
		Body:        req.Body,
		Date:        s.now().UTC(),
		EventDate:   req.EventDate,
		PropertyIDs: ids,
		Properties:  req.Properties,
	}
	if req.Date != nil {
		n.Date = *req.Date
	}
	if err := s.store.CreateNotice(ctx, n); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	return n, nil
}

// List returns active notices visible to the caller, newest first.
func (s *NoticeService) List(ctx context.Context, actor user.Identity, page domain.PageRequest) (domain.Page[notice.Notice], error) {
	var scope []string
	if actor.Role != user.RoleClient {
		// A non-nil scope, even an empty one, restricts the listing.
		scope = append([]string{}, actor.PropertyIDs...)
	}
	items, total, err := s.store.ListNotices(ctx, scope, page)
	if err != nil {
		return domain.Page[notice.Notice]{}, fmt.Errorf("list notices: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// Archive removes a notice from listings.
func (s *NoticeService) Archive(ctx context.Context, actor user.Identity, noticeID string) error {
	return s.store.ArchiveNotice(ctx, noticeID, actor.UserID)
}
