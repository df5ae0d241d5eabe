package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/adapter/otel"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/domain/notification"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/logger"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// TicketResult is returned when a ticket is opened.
type TicketResult struct {
	Ticket       *maintenance.Ticket        `json:"maintenance"`
	Conversation *conversation.Conversation `json:"conversation,omitempty"`
}

// MaintenanceService runs the ticket workflow: creation with staff fan-out,
// guarded status transitions and role-scoped listing.
type MaintenanceService struct {
	store         database.Store
	conversations *ConversationService
	notifications *NotificationService
	metrics       *otel.Metrics
	log           *zap.Logger
}

// NewMaintenanceService creates a maintenance service.
func NewMaintenanceService(
	store database.Store,
	conversations *ConversationService,
	notifications *NotificationService,
	metrics *otel.Metrics,
	log *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		store:         store,
		conversations: conversations,
		notifications: notifications,
		metrics:       metrics,
		log:           log.Named("maintenance"),
	}
}

// Create opens a PENDING ticket for the tenant's apartment, resolves its
// conversation and notifies the property's maintainers and janitors and the
// client owner. Once the ticket is stored, conversation and notification
// failures are logged and do not fail the call.
func (s *MaintenanceService) Create(ctx context.Context, actor user.Identity, req *maintenance.CreateRequest) (*TicketResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	apt, err := s.tenantApartment(ctx, actor, req.ApartmentID)
	if err != nil {
		return nil, err
	}

	t := &maintenance.Ticket{
		ClientID:     actor.ClientID,
		PropertyID:   apt.PropertyID,
		ApartmentID:  apt.ID,
		TenantID:     actor.UserID,
		Type:         req.Type,
		Details:      req.Details,
		Status:       maintenance.StatusPending,
		ScheduledFor: req.Date,
		PropertyName: apt.PropertyName,
		Floor:        apt.Floor,
		Door:         apt.Door,
		TenantName:   actor.Name,
	}
	if err := s.store.CreateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.metrics.TicketCreated(ctx)

	ctx, span := otel.StartMaintenanceSpan(ctx, "create", t.ExternalID)
	defer span.End()
	log := logger.FromContext(ctx, s.log).With(zap.String("maintenance_id", t.ExternalID))

	res := &TicketResult{Ticket: t}
	if cr, err := s.conversations.ResolveForTicket(ctx, t); err != nil {
		log.Error("resolve ticket conversation", zap.Error(err))
	} else {
		res.Conversation = cr.Conversation
	}

	recipients, err := s.recipients(ctx, t)
	if err != nil {
		log.Error("resolve ticket recipients", zap.Error(err))
		return res, nil
	}
	msg := maintenance.CreatedMessage(apt.Label(), apt.PropertyName)
	drafts := make([]notification.Draft, 0, len(recipients))
	for _, uid := range recipients {
		drafts = append(drafts, notification.Draft{
			ClientID: t.ClientID,
			UserID:   uid,
			Message:  msg,
			Href:     maintenance.Href(t.ExternalID),
		})
	}
	if _, err := s.notifications.Notify(ctx, drafts); err != nil {
		log.Error("notify ticket recipients", zap.Error(err))
	}
	return res, nil
}

// tenantApartment resolves the apartment a ticket is raised against. An empty
// id selects the tenant's current home.
func (s *MaintenanceService) tenantApartment(ctx context.Context, actor user.Identity, apartmentID string) (*property.Apartment, error) {
	var (
		apt *property.Apartment
		err error
	)
	if apartmentID != "" {
		apt, err = s.store.GetApartmentByExternalID(ctx, apartmentID)
	} else {
		var u *user.User
		if u, err = s.store.GetUser(ctx, actor.UserID); err != nil {
			return nil, fmt.Errorf("create ticket: %w", err)
		}
		if len(u.ApartmentIDs) == 0 {
			return nil, fmt.Errorf("create ticket: %w: you have no apartment assigned", domain.ErrNotFound)
		}
		apt, err = s.store.GetApartment(ctx, u.ApartmentIDs[0])
	}
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	if apt.TenantID != actor.UserID {
		return nil, fmt.Errorf("create ticket: %w: you do not live in this apartment", domain.ErrUnauthorized)
	}
	return apt, nil
}

// recipients returns the property's maintainers and janitors plus the
// client owner, without duplicates.
func (s *MaintenanceService) recipients(ctx context.Context, t *maintenance.Ticket) ([]string, error) {
	staff, err := s.store.PropertyStaff(ctx, t.PropertyID, user.RoleMaintainer, user.RoleJanitor)
	if err != nil {
		return nil, fmt.Errorf("property staff: %w", err)
	}
	client, err := s.store.GetClient(ctx, t.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return uniqueStrings(append(staff, client.OwnerID)), nil
}

// UpdateStatus moves a ticket to a new status and notifies its tenant. A
// ticket that is COMPLETED or CANCELLED rejects every update with a conflict.
func (s *MaintenanceService) UpdateStatus(ctx context.Context, actor user.Identity, ticketID string, req *maintenance.UpdateStatusRequest) (*maintenance.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx, span := otel.StartMaintenanceSpan(ctx, "update_status", ticketID)
	defer span.End()

	t, err := s.store.GetTicketByExternalID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if !actor.CoversProperty(t.PropertyID) {
		return nil, fmt.Errorf("update ticket %s: %w", ticketID, domain.ErrNotFound)
	}
	if err := maintenance.CheckTransition(t.Status, req.Status); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTicketStatus(ctx, t.ID, req.Status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	label := updated.Floor + "-" + updated.Door
	_, err = s.notifications.Notify(ctx, []notification.Draft{{
		ClientID: updated.ClientID,
		UserID:   updated.TenantID,
		Message:  maintenance.StatusMessage(label, updated.PropertyName, updated.Status),
		Href:     maintenance.Href(updated.ExternalID),
	}})
	if err != nil {
		logger.FromContext(ctx, s.log).Error("notify tenant of status change",
			zap.String("maintenance_id", updated.ExternalID), zap.Error(err))
	}
	return updated, nil
}

// List returns the tickets the caller may see, newest first: tenants their
// own, staff those of their assigned properties, client owners all.
func (s *MaintenanceService) List(ctx context.Context, actor user.Identity, page domain.PageRequest) (domain.Page[maintenance.Ticket], error) {
	var scope maintenance.Scope
	switch {
	case actor.Role == user.RoleTenant:
		scope.TenantID = actor.UserID
	case actor.Role.IsStaff():
		scope.PropertyIDs, scope.StaffOnly = actor.PropertyIDs, true
	case actor.Role == user.RoleClient:
	default:
		return domain.Page[maintenance.Ticket]{}, fmt.Errorf("list tickets: %w", domain.ErrUnauthorized)
	}
	items, total, err := s.store.ListTickets(ctx, scope, page)
	if err != nil {
		return domain.Page[maintenance.Ticket]{}, fmt.Errorf("list tickets: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// uniqueStrings drops empty and repeated values, keeping the first occurrence.
func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
