// Package database defines the persistence port (interface).
//
// Methods documented as client-scoped read the client id from the context
// (see user.ClientIDFromContext) and never return rows of another client.
package database

import (
	"context"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/dashboard"
	"github.com/Strob0t/PropertyHub/internal/domain/feedback"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/domain/notice"
	"github.com/Strob0t/PropertyHub/internal/domain/notification"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
	"github.com/Strob0t/PropertyHub/internal/domain/support"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// Store is the port interface for all persistence operations.
type Store interface {
	UserStore
	TokenRingStore
	PropertyStore
	MaintenanceStore
	ConversationStore
	BillStore
	SubscriptionStore
	NotificationStore
	NoticeStore
	SupportStore
	FeedbackStore
	DashboardStore
}

// UserStore persists users and clients.
type UserStore interface {
	// CreateClientOwner inserts a client and its owner in one transaction.
	// A duplicate email yields domain.ErrConflict.
	CreateClientOwner(ctx context.Context, u *user.User, c *user.Client) error
	// CreateUser inserts a user. A duplicate email yields domain.ErrConflict.
	CreateUser(ctx context.Context, u *user.User) error
	// GetUser loads a user by internal id, unscoped.
	GetUser(ctx context.Context, id string) (*user.User, error)
	// GetUserByEmail loads a user by normalized email, unscoped.
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	// GetUserByExternalID is client-scoped.
	GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error)
	// ListUsers is client-scoped. A nil role list returns every role.
	ListUsers(ctx context.Context, roles []user.Role, page domain.PageRequest) ([]user.User, int, error)
	ListAllUsers(ctx context.Context) ([]user.User, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdateUserStatus(ctx context.Context, userID string, status user.Status) error
	UpdatePermissions(ctx context.Context, userID string, perms user.PermissionSet) error
	// SetStaffProperties replaces a staff user's property assignments. Client-scoped.
	SetStaffProperties(ctx context.Context, userID string, propertyIDs []string) error
	GetClient(ctx context.Context, id string) (*user.Client, error)
	// GetClientByExternalID is unscoped.
	GetClientByExternalID(ctx context.Context, externalID string) (*user.Client, error)
	// ListClients lists every client with its owner, newest first. query
	// matches company name, owner name or external id case-insensitively.
	ListClients(ctx context.Context, page domain.PageRequest) ([]user.Client, int, error)
	SetClientArchived(ctx context.Context, clientID string, archived bool) error
	// ClientUserIDs returns the ids of every user of a client.
	ClientUserIDs(ctx context.Context, clientID string) ([]string, error)
	// UserIDsByRole returns the ids of active and new users with role, unscoped.
	UserIDsByRole(ctx context.Context, role user.Role) ([]string, error)
}

// TokenRingStore maintains each user's bounded ring of session tokens.
// Every method is a single atomic statement so concurrent logins and
// logouts of one user cannot lose updates.
type TokenRingStore interface {
	// PushToken appends token and trims the ring to max entries, returning the
	// tokens evicted from the front.
	PushToken(ctx context.Context, userID, token string, max int) (evicted []string, err error)
	// RemoveTokens drops the given tokens from the ring.
	RemoveTokens(ctx context.Context, userID string, tokens ...string) error
	// RetainToken empties the ring except for keep ("" keeps nothing) and
	// returns the removed tokens.
	RetainToken(ctx context.Context, userID, keep string) (removed []string, err error)
	// PruneTokens drops every token for which keep returns false across all
	// users and reports how many were removed.
	PruneTokens(ctx context.Context, keep func(token string) bool) (int, error)
}

// PropertyStore persists properties, apartments and tenancy.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p *property.Property) error
	ListProperties(ctx context.Context, page domain.PageRequest) ([]property.Property, int, error)
	GetProperty(ctx context.Context, id string) (*property.Property, error)
	GetPropertyByExternalID(ctx context.Context, externalID string) (*property.Property, error)
	// ResolvePropertyIDs maps external ids to internal ids within the client.
	// Unknown ids yield domain.ErrNotFound.
	ResolvePropertyIDs(ctx context.Context, externalIDs []string) ([]string, error)
	CreateApartment(ctx context.Context, a *property.Apartment) error
	GetApartment(ctx context.Context, id string) (*property.Apartment, error)
	GetApartmentByExternalID(ctx context.Context, externalID string) (*property.Apartment, error)
	ListApartments(ctx context.Context, propertyID string) ([]property.Apartment, error)
	// DeleteApartment fails with domain.ErrConflict while a tenant occupies it.
	DeleteApartment(ctx context.Context, apartmentID string) error
	// AssignTenant moves a tenant into an apartment in one transaction: the
	// tenant's previous apartment is vacated first, the target apartment must
	// be vacant or already the tenant's, and both sides of the reference agree
	// afterwards.
	AssignTenant(ctx context.Context, tenantID, apartmentID string, lease property.Lease) error
	// ListOccupiedApartments lists occupied apartments across all clients.
	ListOccupiedApartments(ctx context.Context) ([]property.Apartment, error)
	// PropertyStaff returns ids of users with one of roles assigned to the property.
	PropertyStaff(ctx context.Context, propertyID string, roles ...user.Role) ([]string, error)
}

// MaintenanceStore persists maintenance tickets.
type MaintenanceStore interface {
	CreateTicket(ctx context.Context, t *maintenance.Ticket) error
	GetTicketByExternalID(ctx context.Context, externalID string) (*maintenance.Ticket, error)
	// UpdateTicketStatus applies the status only while the ticket is not in a
	// terminal state; otherwise it fails with domain.ErrConflict.
	UpdateTicketStatus(ctx context.Context, ticketID string, status maintenance.Status) (*maintenance.Ticket, error)
	ListTickets(ctx context.Context, scope maintenance.Scope, page domain.PageRequest) ([]maintenance.Ticket, int, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// ResolveConversation returns the single conversation for key, creating it
	// from seed when absent. created reports whether this call inserted it.
	ResolveConversation(ctx context.Context, key conversation.Key, seed *conversation.Conversation) (c *conversation.Conversation, created bool, err error)
	GetConversationByExternalID(ctx context.Context, externalID string) (*conversation.Conversation, error)
	ListConversations(ctx context.Context, viewer user.Identity, archived bool) ([]conversation.Conversation, error)
	// AppendMessage inserts m and bumps the conversation's activity time.
	AppendMessage(ctx context.Context, m *conversation.Message) error
	ListMessages(ctx context.Context, conversationID string, page domain.PageRequest) ([]conversation.Message, int, error)
	RecentMessages(ctx context.Context, viewer user.Identity, limit int) ([]conversation.Message, error)
	SetArchived(ctx context.Context, conversationID, userID string, archived bool) error
}

// BillStore persists rent and deposit bills.
type BillStore interface {
	// InsertBillIfAbsent writes b unless a bill with the same apartment,
	// cycle and type exists; created is false in that case.
	InsertBillIfAbsent(ctx context.Context, b *billing.Bill) (created bool, err error)
	ListBills(ctx context.Context, filter billing.Filter, page domain.PageRequest) ([]billing.Bill, int, error)
	UpdateBillStatus(ctx context.Context, externalID string, status billing.Status) (*billing.Bill, error)
}

// SubscriptionStore persists coupons, plans and subscription bills.
type SubscriptionStore interface {
	CreateCoupon(ctx context.Context, c *subscription.Coupon) error
	ListCoupons(ctx context.Context, page domain.PageRequest) ([]subscription.Coupon, int, error)
	// DeleteCoupon fails with domain.ErrConflict once the coupon has been used.
	DeleteCoupon(ctx context.Context, externalID string) error
	// RedeemCoupon atomically consumes a redeemable coupon, subscribes the
	// client, activates the owner and records a subscription bill.
	RedeemCoupon(ctx context.Context, code, clientID, userID string, now time.Time) (*subscription.Redemption, error)

	CreatePlan(ctx context.Context, p *subscription.Plan) error
	UpsertPlanByName(ctx context.Context, p *subscription.Plan) error
	ListPlans(ctx context.Context, activeOnly bool) ([]subscription.Plan, error)
	UpdatePlan(ctx context.Context, externalID string, p *subscription.Plan) error
	DeletePlan(ctx context.Context, externalID string) error
	// MakePlanPopular marks exactly one plan popular.
	MakePlanPopular(ctx context.Context, externalID string) error
	SetPlanStatus(ctx context.Context, externalID string, status subscription.PlanStatus) error
	// ListSubscriptionBills is client-scoped.
	ListSubscriptionBills(ctx context.Context) ([]subscription.Bill, error)
}

// NotificationStore persists per-user notifications.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, drafts []notification.Draft) ([]notification.Notification, error)
	ListNotifications(ctx context.Context, userID string, page domain.PageRequest) ([]notification.Notification, int, error)
	MarkNotificationRead(ctx context.Context, userID, externalID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// NoticeStore persists notices. All methods are client-scoped.
type NoticeStore interface {
	CreateNotice(ctx context.Context, n *notice.Notice) error
	// ListNotices returns active notices; a nil propertyIDs lists all of them.
	ListNotices(ctx context.Context, propertyIDs []string, page domain.PageRequest) ([]notice.Notice, int, error)
	ArchiveNotice(ctx context.Context, externalID, archivedBy string) error
}

// SupportStore persists support tickets. Methods are unscoped; callers narrow
// listings through support.Filter.
type SupportStore interface {
	CreateSupportTicket(ctx context.Context, t *support.Ticket) error
	// ListSupportTickets returns tickets with opener and company, newest first.
	ListSupportTickets(ctx context.Context, filter support.Filter, page domain.PageRequest) ([]support.Ticket, int, error)
	UpdateSupportTicketStatus(ctx context.Context, externalID string, status support.Status) (*support.Ticket, error)
}

// FeedbackStore persists user feedback. Methods are unscoped.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *feedback.Feedback) error
	ListFeedback(ctx context.Context, page domain.PageRequest) ([]feedback.Feedback, int, error)
	// GetFeedback loads an entry and marks it read.
	GetFeedback(ctx context.Context, externalID string) (*feedback.Feedback, error)
	UpdateFeedback(ctx context.Context, externalID string, req *feedback.Request) error
	DeleteFeedback(ctx context.Context, externalID string) error
}

// DashboardStore aggregates figures for dashboards.
type DashboardStore interface {
	// ClientCounts is client-scoped.
	ClientCounts(ctx context.Context) (dashboard.Counts, error)
}
