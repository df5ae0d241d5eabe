package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/notification"
	"github.com/Strob0t/PropertyHub/internal/domain/support"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// SupportService runs the help desk between client users and the platform
// operator.
type SupportService struct {
	store  database.Store
	notify *NotificationService
	log    *zap.Logger
}

// NewSupportService creates a support service.
func NewSupportService(store database.Store, notify *NotificationService, log *zap.Logger) *SupportService {
	return &SupportService{store: store, notify: notify, log: log.Named("support")}
}

// Open files a ticket on behalf of the caller and alerts every superadmin.
func (s *SupportService) Open(ctx context.Context, actor user.Identity, req *support.CreateRequest) (*support.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if actor.ClientID == "" {
		return nil, domain.Invalid("only client users can open support tickets")
	}
	t := &support.Ticket{
		ClientID:    actor.ClientID,
		OpenedBy:    actor.UserID,
		Status:      support.StatusOpen,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}
	if err := s.store.CreateSupportTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("create support ticket: %w", err)
	}
	s.log.Info("support ticket opened", zap.String("ticket_id", t.ExternalID), zap.String("client_id", t.ClientID))
	s.alertAdmins(ctx, "New support ticket: "+t.Title, "/support/tickets")
	return t, nil
}

// OpenFor files a ticket for a client user picked by a superadmin. The user
// is notified that a ticket was raised for them.
func (s *SupportService) OpenFor(ctx context.Context, _ user.Identity, req *support.AdminCreateRequest) (*support.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.store.GetClientByExternalID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	u, err := s.store.GetUserByExternalID(user.ContextWithClient(ctx, c.ID), req.UserID)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	t := &support.Ticket{
		ClientID:    c.ID,
		OpenedBy:    u.ID,
		Status:      support.StatusOpen,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}
	if err := s.store.CreateSupportTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("create support ticket: %w", err)
	}
	s.log.Info("support ticket opened by admin", zap.String("ticket_id", t.ExternalID), zap.String("user_id", u.ID))
	s.send(ctx, []notification.Draft{{
		ClientID: c.ID,
		UserID:   u.ID,
		Message:  "A support ticket was opened for you: " + t.Title,
		Href:     "/support/mytickets",
	}})
	return t, nil
}

// Mine lists the tickets the caller opened.
func (s *SupportService) Mine(ctx context.Context, actor user.Identity, page domain.PageRequest) (domain.Page[support.Ticket], error) {
	return s.list(ctx, support.Filter{OpenedBy: actor.UserID}, page)
}

// List lists every ticket across clients.
func (s *SupportService) List(ctx context.Context, _ user.Identity, page domain.PageRequest) (domain.Page[support.Ticket], error) {
	return s.list(ctx, support.Filter{}, page)
}

// RecentOpen returns the newest open tickets for the operator overview.
func (s *SupportService) RecentOpen(ctx context.Context) ([]support.Ticket, error) {
	items, _, err := s.store.ListSupportTickets(ctx, support.Filter{Status: support.StatusOpen},
		domain.PageRequest{Page: 1, Size: support.RecentOpenLimit})
	if err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	if items == nil {
		items = []support.Ticket{}
	}
	return items, nil
}

// UpdateStatus moves a ticket and tells its opener.
func (s *SupportService) UpdateStatus(ctx context.Context, ticketID string, req *support.UpdateStatusRequest) (*support.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.UpdateSupportTicketStatus(ctx, ticketID, req.Status)
	if err != nil {
		return nil, fmt.Errorf("update support ticket: %w", err)
	}
	s.send(ctx, []notification.Draft{{
		ClientID: t.ClientID,
		UserID:   t.OpenedBy,
		Message:  fmt.Sprintf("Your support ticket %q is now %s", t.Title, strings.ToLower(string(t.Status))),
		Href:     "/support/mytickets",
	}})
	return t, nil
}

func (s *SupportService) list(ctx context.Context, f support.Filter, page domain.PageRequest) (domain.Page[support.Ticket], error) {
	items, total, err := s.store.ListSupportTickets(ctx, f, page)
	if err != nil {
		return domain.Page[support.Ticket]{}, fmt.Errorf("list support tickets: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// alertAdmins notifies every active superadmin. The ticket is already stored,
// so failures are logged only.
func (s *SupportService) alertAdmins(ctx context.Context, message, href string) {
	s.send(ctx, adminDrafts(ctx, s.store, s.log, message, href))
}

func (s *SupportService) send(ctx context.Context, drafts []notification.Draft) {
	if _, err := s.notify.Notify(ctx, drafts); err != nil {
		s.log.Warn("support notification failed", zap.Error(err))
	}
}

// adminDrafts builds one notification draft per active superadmin.
func adminDrafts(ctx context.Context, store database.UserStore, log *zap.Logger, message, href string) []notification.Draft {
	ids, err := store.UserIDsByRole(ctx, user.RoleSuperAdmin)
	if err != nil {
		log.Warn("load superadmins", zap.Error(err))
		return nil
	}
	drafts := make([]notification.Draft, 0, len(ids))
	for _, id := range ids {
		drafts = append(drafts, notification.Draft{UserID: id, Message: message, Href: href})
	}
	return drafts
}
