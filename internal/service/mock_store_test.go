package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
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
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory database.Store. Client-scoped methods follow the
// Postgres store: an unscoped context matches nothing.
type mockStore struct {
	mu  sync.Mutex
	seq int

	users         map[string]*user.User
	clients       map[string]*user.Client
	rings         map[string][]string
	properties    map[string]*property.Property
	apartments    map[string]*property.Apartment
	tickets       map[string]*maintenance.Ticket
	conversations map[string]*conversation.Conversation
	messages      []conversation.Message
	bills         []billing.Bill
	coupons       []*subscription.Coupon
	plans         []*subscription.Plan
	subBills      []subscription.Bill
	notifications []notification.Notification
	notices       []notice.Notice
	staffProps    map[string][]string
	support       []support.Ticket
	feedback      []feedback.Feedback

	// Error hooks, set these to inject failures.
	createNotificationsErr error
	pushTokenErr           error

	// beforePush runs at the start of PushToken, outside the lock.
	beforePush func()
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         map[string]*user.User{},
		clients:       map[string]*user.Client{},
		rings:         map[string][]string{},
		properties:    map[string]*property.Property{},
		apartments:    map[string]*property.Apartment{},
		tickets:       map[string]*maintenance.Ticket{},
		conversations: map[string]*conversation.Conversation{},
		staffProps:    map[string][]string{},
	}
}

func (m *mockStore) nextID(prefix string) (id, ext string) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), fmt.Sprintf("%s-ext-%d", prefix, m.seq)
}

func (m *mockStore) stamp() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func scoped(ctx context.Context, clientID string) bool {
	cid := user.ClientIDFromContext(ctx)
	return cid != "" && cid == clientID
}

func paginate[T any](items []T, page domain.PageRequest) ([]T, int) {
	total := len(items)
	if page.Size <= 0 {
		return items, total
	}
	start := min(page.Offset(), total)
	end := min(start+page.Size, total)
	return items[start:end], total
}

func reversed[T any](in []T) []T {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

func (m *mockStore) userCopy(u *user.User) *user.User {
	cp := *u
	cp.PropertyIDs = slices.Clone(m.staffProps[u.ID])
	cp.ApartmentIDs = nil
	for _, a := range m.apartments {
		if a.TenantID == u.ID {
			cp.ApartmentIDs = append(cp.ApartmentIDs, a.ID)
			if !slices.Contains(cp.PropertyIDs, a.PropertyID) {
				cp.PropertyIDs = append(cp.PropertyIDs, a.PropertyID)
			}
		}
	}
	cp.Tokens = slices.Clone(m.rings[u.ID])
	return &cp
}

// --- users ---

func (m *mockStore) emailTaken(email string) bool {
	for _, u := range m.users {
		if u.Email == user.NormalizeEmail(email) {
			return true
		}
	}
	return false
}

func (m *mockStore) CreateClientOwner(_ context.Context, u *user.User, c *user.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email) {
		return fmt.Errorf("create user %s: %w", u.Email, domain.ErrConflict)
	}
	c.ID, c.ExternalID = m.nextID("client")
	u.ID, u.ExternalID = m.nextID("user")
	c.OwnerID, u.ClientID = u.ID, c.ID
	u.Email = user.NormalizeEmail(u.Email)
	u.CreatedAt, c.CreatedAt = m.stamp(), m.stamp()
	cc, cu := *c, *u
	m.clients[c.ID], m.users[u.ID] = &cc, &cu
	return nil
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email) {
		return fmt.Errorf("create user %s: %w", u.Email, domain.ErrConflict)
	}
	for _, pid := range u.PropertyIDs {
		if p, ok := m.properties[pid]; !ok || p.ClientID != u.ClientID {
			return fmt.Errorf("link staff properties: %w", domain.ErrNotFound)
		}
	}
	u.ID, u.ExternalID = m.nextID("user")
	u.Email = user.NormalizeEmail(u.Email)
	u.CreatedAt = m.stamp()
	cp := *u
	m.users[u.ID] = &cp
	m.staffProps[u.ID] = slices.Clone(u.PropertyIDs)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
	}
	return m.userCopy(u), nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.NormalizeEmail(email) {
			return m.userCopy(u), nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", domain.ErrNotFound)
}

func (m *mockStore) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == externalID && scoped(ctx, u.ClientID) {
			return m.userCopy(u), nil
		}
	}
	return nil, fmt.Errorf("get user %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) ListUsers(ctx context.Context, roles []user.Role, page domain.PageRequest) ([]user.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		if !scoped(ctx, u.ClientID) || u.Status == user.StatusDeleted {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, u.Role) {
			continue
		}
		out = append(out, *m.userCopy(u))
	}
	slices.SortFunc(out, func(a, b user.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) ListAllUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *m.userCopy(u))
	}
	return out, nil
}

func (m *mockStore) updateUser(id string, fn func(*user.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("update user %s: %w", id, domain.ErrNotFound)
	}
	fn(u)
	return nil
}

func (m *mockStore) UpdatePassword(_ context.Context, userID, hash string) error {
	return m.updateUser(userID, func(u *user.User) { u.PasswordHash = hash })
}

func (m *mockStore) UpdateUserStatus(_ context.Context, userID string, status user.Status) error {
	return m.updateUser(userID, func(u *user.User) { u.Status = status })
}

func (m *mockStore) UpdatePermissions(_ context.Context, userID string, perms user.PermissionSet) error {
	return m.updateUser(userID, func(u *user.User) { u.Permissions = perms })
}

func (m *mockStore) SetStaffProperties(ctx context.Context, userID string, propertyIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || !scoped(ctx, u.ClientID) {
		return fmt.Errorf("set staff properties %s: %w", userID, domain.ErrNotFound)
	}
	if !u.Role.IsStaff() {
		return domain.Invalid("user is not a staff member")
	}
	m.staffProps[userID] = slices.Clone(propertyIDs)
	return nil
}

func (m *mockStore) GetClient(_ context.Context, id string) (*user.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("get client %s: %w", id, domain.ErrNotFound)
	}
	return m.clientCopy(c), nil
}

func (m *mockStore) clientCopy(c *user.Client) *user.Client {
	cp := *c
	if o, ok := m.users[c.OwnerID]; ok {
		cp.OwnerName, cp.OwnerEmail = o.Name, o.Email
	}
	return &cp
}

func (m *mockStore) GetClientByExternalID(_ context.Context, externalID string) (*user.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.ExternalID == externalID {
			return m.clientCopy(c), nil
		}
	}
	return nil, fmt.Errorf("get client %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) ListClients(_ context.Context, page domain.PageRequest) ([]user.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(page.Query)
	var out []user.Client
	for _, c := range m.clients {
		cp := m.clientCopy(c)
		if q != "" && !strings.Contains(strings.ToLower(cp.CompanyName), q) &&
			!strings.Contains(strings.ToLower(cp.OwnerName), q) && !strings.Contains(cp.ExternalID, q) {
			continue
		}
		out = append(out, *cp)
	}
	slices.SortFunc(out, func(a, b user.Client) int { return b.CreatedAt.Compare(a.CreatedAt) })
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) SetClientArchived(_ context.Context, clientID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return fmt.Errorf("archive client %s: %w", clientID, domain.ErrNotFound)
	}
	c.Archived = archived
	return nil
}

func (m *mockStore) ClientUserIDs(_ context.Context, clientID string) ([]string, error) {
	return m.userIDs(func(u *user.User) bool { return u.ClientID == clientID }), nil
}

func (m *mockStore) UserIDsByRole(_ context.Context, role user.Role) ([]string, error) {
	return m.userIDs(func(u *user.User) bool { return u.Role == role && u.Status.CanAuthenticate() }), nil
}

func (m *mockStore) userIDs(match func(*user.User) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, u := range m.users {
		if match(u) {
			ids = append(ids, u.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// --- token ring ---

func (m *mockStore) PushToken(_ context.Context, userID, token string, max int) ([]string, error) {
	if m.beforePush != nil {
		m.beforePush()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushTokenErr != nil {
		return nil, m.pushTokenErr
	}
	ring := append(m.rings[userID], token)
	var evicted []string
	if len(ring) > max {
		evicted = slices.Clone(ring[:len(ring)-max])
		ring = ring[len(ring)-max:]
	}
	m.rings[userID] = ring
	return evicted, nil
}

func (m *mockStore) RemoveTokens(_ context.Context, userID string, tokens ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rings[userID] = slices.DeleteFunc(m.rings[userID], func(t string) bool { return slices.Contains(tokens, t) })
	return nil
}

func (m *mockStore) RetainToken(_ context.Context, userID, keep string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed, kept []string
	for _, t := range m.rings[userID] {
		if keep != "" && t == keep {
			kept = append(kept, t)
		} else {
			removed = append(removed, t)
		}
	}
	m.rings[userID] = kept
	return removed, nil
}

func (m *mockStore) PruneTokens(_ context.Context, keep func(string) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for uid, ring := range m.rings {
		before := len(ring)
		m.rings[uid] = slices.DeleteFunc(ring, func(t string) bool { return !keep(t) })
		n += before - len(m.rings[uid])
	}
	return n, nil
}

func (m *mockStore) ring(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rings[userID])
}

// --- properties ---

func (m *mockStore) CreateProperty(ctx context.Context, p *property.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ClientID = user.ClientIDFromContext(ctx)
	if p.ClientID == "" {
		return fmt.Errorf("create property: %w", domain.ErrUnauthorized)
	}
	p.ID, p.ExternalID = m.nextID("property")
	p.CreatedAt = m.stamp()
	cp := *p
	m.properties[p.ID] = &cp
	return nil
}

func (m *mockStore) ListProperties(ctx context.Context, page domain.PageRequest) ([]property.Property, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []property.Property
	for _, p := range m.properties {
		if scoped(ctx, p.ClientID) {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b property.Property) int { return b.CreatedAt.Compare(a.CreatedAt) })
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.properties[id]; ok && scoped(ctx, p.ClientID) {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("get property %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetPropertyByExternalID(ctx context.Context, externalID string) (*property.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.properties {
		if p.ExternalID == externalID && scoped(ctx, p.ClientID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get property %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) ResolvePropertyIDs(ctx context.Context, externalIDs []string) ([]string, error) {
	out := make([]string, 0, len(externalIDs))
	for _, ext := range externalIDs {
		p, err := m.GetPropertyByExternalID(ctx, ext)
		if err != nil {
			return nil, err
		}
		out = append(out, p.ID)
	}
	return out, nil
}

func (m *mockStore) CreateApartment(ctx context.Context, a *property.Apartment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[a.PropertyID]
	if !ok || !scoped(ctx, p.ClientID) {
		return fmt.Errorf("create apartment: %w", domain.ErrNotFound)
	}
	a.ID, a.ExternalID = m.nextID("apartment")
	a.ClientID, a.PropertyName = p.ClientID, p.Name
	a.CreatedAt = m.stamp()
	cp := *a
	m.apartments[a.ID] = &cp
	return nil
}

func (m *mockStore) GetApartment(ctx context.Context, id string) (*property.Apartment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.apartments[id]; ok && scoped(ctx, a.ClientID) {
		cp := *a
		return &cp, nil
	}
	return nil, fmt.Errorf("get apartment %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetApartmentByExternalID(ctx context.Context, externalID string) (*property.Apartment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apartments {
		if a.ExternalID == externalID && scoped(ctx, a.ClientID) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get apartment %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) ListApartments(ctx context.Context, propertyID string) ([]property.Apartment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []property.Apartment
	for _, a := range m.apartments {
		if a.PropertyID == propertyID && scoped(ctx, a.ClientID) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b property.Apartment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *mockStore) DeleteApartment(_ context.Context, apartmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apartments[apartmentID]
	if !ok {
		return fmt.Errorf("delete apartment %s: %w", apartmentID, domain.ErrNotFound)
	}
	if a.Occupied() {
		return fmt.Errorf("delete apartment: %w: apartment is occupied", domain.ErrConflict)
	}
	delete(m.apartments, apartmentID)
	return nil
}

func (m *mockStore) AssignTenant(ctx context.Context, tenantID, apartmentID string, lease property.Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apartments[apartmentID]
	if !ok || !scoped(ctx, a.ClientID) {
		return fmt.Errorf("assign tenant: %w", domain.ErrNotFound)
	}
	if a.Occupied() && a.TenantID != tenantID {
		return fmt.Errorf("assign tenant: %w: apartment is occupied", domain.ErrConflict)
	}
	for _, other := range m.apartments {
		if other.TenantID == tenantID {
			other.TenantID, other.Lease = "", property.Lease{}
		}
	}
	a.TenantID, a.Lease = tenantID, lease
	return nil
}

func (m *mockStore) ListOccupiedApartments(_ context.Context) ([]property.Apartment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []property.Apartment
	for _, a := range m.apartments {
		if a.Occupied() {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b property.Apartment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *mockStore) PropertyStaff(_ context.Context, propertyID string, roles ...user.Role) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for uid, props := range m.staffProps {
		u := m.users[uid]
		if u != nil && slices.Contains(props, propertyID) && slices.Contains(roles, u.Role) {
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out, nil
}

// --- maintenance ---

func (m *mockStore) CreateTicket(ctx context.Context, t *maintenance.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !scoped(ctx, t.ClientID) {
		return fmt.Errorf("create ticket: %w", domain.ErrNotFound)
	}
	t.ID, t.ExternalID = m.nextID("ticket")
	t.CreatedAt, t.UpdatedAt = m.stamp(), m.stamp()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *mockStore) GetTicketByExternalID(ctx context.Context, externalID string) (*maintenance.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.ExternalID == externalID && scoped(ctx, t.ClientID) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get ticket %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) UpdateTicketStatus(_ context.Context, ticketID string, status maintenance.Status) (*maintenance.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("update ticket %s: %w", ticketID, domain.ErrNotFound)
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrConflict, maintenance.TerminalMessage(t.Status))
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (m *mockStore) ListTickets(ctx context.Context, scope maintenance.Scope, page domain.PageRequest) ([]maintenance.Ticket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	staffOnly := scope.StaffOnly || len(scope.PropertyIDs) > 0
	var out []maintenance.Ticket
	for _, t := range m.tickets {
		switch {
		case !scoped(ctx, t.ClientID):
		case scope.TenantID != "" && t.TenantID != scope.TenantID:
		case staffOnly && !slices.Contains(scope.PropertyIDs, t.PropertyID):
		default:
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b maintenance.Ticket) int { return b.CreatedAt.Compare(a.CreatedAt) })
	items, total := paginate(out, page)
	return items, total, nil
}

// --- conversations ---

func (m *mockStore) ResolveConversation(_ context.Context, key conversation.Key, seed *conversation.Conversation) (*conversation.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.ClientID != seed.ClientID {
			continue
		}
		if (key.MaintenanceID != "" && c.MaintenanceID == key.MaintenanceID) ||
			(key.PairKey != "" && c.PairKey == key.PairKey) {
			cp := *c
			return &cp, false, nil
		}
	}
	c := *seed
	c.ID, c.ExternalID = m.nextID("conversation")
	c.CreatedAt, c.UpdatedAt = m.stamp(), m.stamp()
	m.conversations[c.ID] = &c
	cp := c
	return &cp, true, nil
}

func (m *mockStore) GetConversationByExternalID(ctx context.Context, externalID string) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.ExternalID == externalID && scoped(ctx, c.ClientID) {
			cp := *c
			cp.ArchivedBy = slices.Clone(c.ArchivedBy)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get conversation %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) ListConversations(_ context.Context, viewer user.Identity, archived bool) ([]conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conversation.Conversation
	for _, c := range m.conversations {
		if c.VisibleTo(viewer) && c.ArchivedFor(viewer.UserID) == archived {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b conversation.Conversation) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (m *mockStore) AppendMessage(_ context.Context, msg *conversation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("append message: %w", domain.ErrNotFound)
	}
	msg.ID, msg.ExternalID = m.nextID("message")
	msg.CreatedAt = m.stamp()
	c.UpdatedAt = msg.CreatedAt
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockStore) ListMessages(_ context.Context, conversationID string, page domain.PageRequest) ([]conversation.Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conversation.Message
	for _, msg := range reversed(m.messages) {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) RecentMessages(_ context.Context, viewer user.Identity, limit int) ([]conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conversation.Message
	for _, msg := range reversed(m.messages) {
		c := m.conversations[msg.ConversationID]
		if msg.SenderID == viewer.UserID || !c.VisibleTo(viewer) || c.ArchivedFor(viewer.UserID) {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) SetArchived(_ context.Context, conversationID, userID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return fmt.Errorf("archive conversation: %w", domain.ErrNotFound)
	}
	c.ArchivedBy = slices.DeleteFunc(c.ArchivedBy, func(id string) bool { return id == userID })
	if archived {
		c.ArchivedBy = append(c.ArchivedBy, userID)
	}
	return nil
}

// --- bills ---

func (m *mockStore) InsertBillIfAbsent(_ context.Context, b *billing.Bill) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bills {
		if existing.ApartmentID == b.ApartmentID && existing.Type == b.Type && existing.Cycle == b.Cycle {
			return false, nil
		}
	}
	b.ID, b.ExternalID = m.nextID("bill")
	if b.Status == "" {
		b.Status = billing.StatusUnpaid
	}
	b.CreatedAt = m.stamp()
	m.bills = append(m.bills, *b)
	return true, nil
}

func (m *mockStore) ListBills(ctx context.Context, f billing.Filter, page domain.PageRequest) ([]billing.Bill, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []billing.Bill
	for _, b := range reversed(m.bills) {
		switch {
		case !scoped(ctx, b.ClientID):
		case f.TenantID != "" && b.TenantID != f.TenantID:
		case f.Status != "" && b.Status != f.Status:
		default:
			out = append(out, b)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) UpdateBillStatus(ctx context.Context, externalID string, status billing.Status) (*billing.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bills {
		if m.bills[i].ExternalID == externalID && scoped(ctx, m.bills[i].ClientID) {
			m.bills[i].Status = status
			b := m.bills[i]
			return &b, nil
		}
	}
	return nil, fmt.Errorf("update bill %s: %w", externalID, domain.ErrNotFound)
}

// --- subscriptions ---

func (m *mockStore) CreateCoupon(_ context.Context, c *subscription.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID, c.ExternalID = m.nextID("coupon")
	c.CreatedAt = m.stamp()
	cp := *c
	m.coupons = append(m.coupons, &cp)
	return nil
}

func (m *mockStore) ListCoupons(_ context.Context, page domain.PageRequest) ([]subscription.Coupon, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscription.Coupon
	for _, c := range reversed(m.coupons) {
		out = append(out, *c)
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) DeleteCoupon(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.coupons {
		if c.ExternalID != externalID {
			continue
		}
		if c.Uses > 0 {
			return fmt.Errorf("delete coupon: %w: coupon has been used", domain.ErrConflict)
		}
		m.coupons = slices.Delete(m.coupons, i, i+1)
		return nil
	}
	return fmt.Errorf("delete coupon %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) RedeemCoupon(_ context.Context, code, clientID, userID string, now time.Time) (*subscription.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.coupons, func(c *subscription.Coupon) bool { return c.Code == code })
	if idx < 0 {
		return nil, subscription.ErrCouponNotValid
	}
	c := m.coupons[idx]
	if err := c.CheckRedeemable(now); err != nil {
		return nil, err
	}
	c.Uses++
	c.UserID, c.Active = userID, false

	out := &subscription.Redemption{Plan: string(c.CodeType), ValidUntil: c.ValidUntil(now)}
	cl := m.clients[clientID]
	cl.Subscribed, cl.SubscriptionPlan = true, out.Plan
	cl.SubscriptionValidUntil = &out.ValidUntil
	m.users[userID].Status = user.StatusActive

	id, ext := m.nextID("subbill")
	m.subBills = append(m.subBills, subscription.Bill{
		ID: id, ExternalID: ext, ClientID: clientID, Status: subscription.BillPaid,
		Description: "Coupon " + c.Code + " redeemed for " + out.Plan + " plan", CreatedAt: now,
	})
	return out, nil
}

func (m *mockStore) CreatePlan(_ context.Context, p *subscription.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.plans {
		if strings.EqualFold(existing.Name, p.Name) {
			return fmt.Errorf("create plan %s: %w", p.Name, domain.ErrConflict)
		}
	}
	p.ID, p.ExternalID = m.nextID("plan")
	p.CreatedAt = m.stamp()
	cp := *p
	m.plans = append(m.plans, &cp)
	return nil
}

func (m *mockStore) UpsertPlanByName(_ context.Context, p *subscription.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = subscription.PlanActive
	}
	for _, existing := range m.plans {
		if existing.Name == p.Name {
			existing.Description, existing.Price = p.Description, p.Price
			existing.DurationDays, existing.Features = p.DurationDays, p.Features
			p.ID, p.ExternalID, p.CreatedAt = existing.ID, existing.ExternalID, existing.CreatedAt
			return nil
		}
	}
	p.ID, p.ExternalID = m.nextID("plan")
	p.CreatedAt = m.stamp()
	cp := *p
	cp.Popular = false
	m.plans = append(m.plans, &cp)
	return nil
}

func (m *mockStore) ListPlans(_ context.Context, activeOnly bool) ([]subscription.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscription.Plan
	for _, p := range m.plans {
		if !activeOnly || p.Status == subscription.PlanActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockStore) plan(externalID string) (*subscription.Plan, error) {
	for _, p := range m.plans {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("plan %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) UpdatePlan(_ context.Context, externalID string, p *subscription.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, err := m.plan(externalID)
	if err != nil {
		return err
	}
	existing.Name, existing.Description, existing.Price = p.Name, p.Description, p.Price
	existing.DurationDays, existing.Features = p.DurationDays, p.Features
	return nil
}

func (m *mockStore) DeletePlan(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.plan(externalID); err != nil {
		return err
	}
	m.plans = slices.DeleteFunc(m.plans, func(p *subscription.Plan) bool { return p.ExternalID == externalID })
	return nil
}

func (m *mockStore) MakePlanPopular(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.plan(externalID); err != nil {
		return err
	}
	for _, p := range m.plans {
		p.Popular = p.ExternalID == externalID
	}
	return nil
}

func (m *mockStore) SetPlanStatus(_ context.Context, externalID string, status subscription.PlanStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.plan(externalID)
	if err != nil {
		return err
	}
	p.Status = status
	return nil
}

func (m *mockStore) ListSubscriptionBills(ctx context.Context) ([]subscription.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscription.Bill
	for _, b := range reversed(m.subBills) {
		if scoped(ctx, b.ClientID) {
			out = append(out, b)
		}
	}
	return out, nil
}

// --- notifications ---

func (m *mockStore) CreateNotifications(_ context.Context, drafts []notification.Draft) ([]notification.Notification, error) {
	if m.createNotificationsErr != nil {
		return nil, m.createNotificationsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notification.Notification, 0, len(drafts))
	for _, d := range drafts {
		id, ext := m.nextID("notification")
		n := notification.Notification{
			ID: id, ExternalID: ext, ClientID: d.ClientID, UserID: d.UserID,
			Message: d.Message, Href: d.Href, Status: notification.StatusUnread, CreatedAt: m.stamp(),
		}
		m.notifications = append(m.notifications, n)
		out = append(out, n)
	}
	return out, nil
}

func (m *mockStore) ListNotifications(_ context.Context, userID string, page domain.PageRequest) ([]notification.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notification.Notification
	for _, n := range reversed(m.notifications) {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) MarkNotificationRead(_ context.Context, userID, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ExternalID == externalID && m.notifications[i].UserID == userID {
			m.notifications[i].Status = notification.StatusRead
			return nil
		}
	}
	return fmt.Errorf("mark notification %s: %w", externalID, domain.ErrNotFound)
}

func (m *mockStore) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && m.notifications[i].Status == notification.StatusUnread {
			m.notifications[i].Status = notification.StatusRead
			n++
		}
	}
	return n, nil
}

func (m *mockStore) notificationsFor(userID string) []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notification.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// --- notices ---

func (m *mockStore) CreateNotice(ctx context.Context, n *notice.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ClientID = user.ClientIDFromContext(ctx)
	if n.ClientID == "" {
		return fmt.Errorf("create notice: %w", domain.ErrUnauthorized)
	}
	n.ID, n.ExternalID = m.nextID("notice")
	n.CreatedAt = m.stamp()
	m.notices = append(m.notices, *n)
	return nil
}

func (m *mockStore) ListNotices(ctx context.Context, propertyIDs []string, page domain.PageRequest) ([]notice.Notice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notice.Notice
	for _, n := range reversed(m.notices) {
		if !scoped(ctx, n.ClientID) || n.Archived {
			continue
		}
		if propertyIDs != nil && !slices.ContainsFunc(n.PropertyIDs, func(id string) bool {
			return slices.Contains(propertyIDs, id)
		}) {
			continue
		}
		out = append(out, n)
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) ArchiveNotice(ctx context.Context, externalID, archivedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notices {
		if m.notices[i].ExternalID == externalID && scoped(ctx, m.notices[i].ClientID) {
			m.notices[i].Archived, m.notices[i].ArchivedBy = true, archivedBy
			return nil
		}
	}
	return fmt.Errorf("archive notice %s: %w", externalID, domain.ErrNotFound)
}

// --- support ---

func (m *mockStore) supportView(t support.Ticket) support.Ticket {
	if u, ok := m.users[t.OpenedBy]; ok {
		t.OpenerName, t.OpenerEmail, t.OpenerRole = u.Name, u.Email, string(u.Role)
	}
	if c, ok := m.clients[t.ClientID]; ok {
		t.CompanyName = c.CompanyName
	}
	return t
}

func (m *mockStore) CreateSupportTicket(_ context.Context, t *support.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID, t.ExternalID = m.nextID("support")
	t.CreatedAt, t.UpdatedAt = m.stamp(), m.stamp()
	if t.Status == "" {
		t.Status = support.StatusOpen
	}
	m.support = append(m.support, *t)
	return nil
}

func (m *mockStore) ListSupportTickets(_ context.Context, f support.Filter, page domain.PageRequest) ([]support.Ticket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []support.Ticket
	for _, t := range reversed(m.support) {
		if (f.OpenedBy == "" || t.OpenedBy == f.OpenedBy) && (f.Status == "" || t.Status == f.Status) {
			out = append(out, m.supportView(t))
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) UpdateSupportTicketStatus(_ context.Context, externalID string, status support.Status) (*support.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.support {
		if m.support[i].ExternalID == externalID {
			m.support[i].Status = status
			m.support[i].UpdatedAt = m.stamp()
			t := m.supportView(m.support[i])
			return &t, nil
		}
	}
	return nil, fmt.Errorf("update support ticket %s: %w", externalID, domain.ErrNotFound)
}

// --- feedback ---

func (m *mockStore) feedbackIndex(externalID string) int {
	return slices.IndexFunc(m.feedback, func(f feedback.Feedback) bool { return f.ExternalID == externalID })
}

func (m *mockStore) feedbackView(f feedback.Feedback) feedback.Feedback {
	if u, ok := m.users[f.AuthorID]; ok {
		f.AuthorName, f.AuthorEmail, f.AuthorRole = u.Name, u.Email, string(u.Role)
	}
	return f
}

func (m *mockStore) CreateFeedback(_ context.Context, f *feedback.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID, f.ExternalID = m.nextID("feedback")
	f.CreatedAt = m.stamp()
	m.feedback = append(m.feedback, *f)
	return nil
}

func (m *mockStore) ListFeedback(_ context.Context, page domain.PageRequest) ([]feedback.Feedback, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []feedback.Feedback
	for _, f := range reversed(m.feedback) {
		out = append(out, m.feedbackView(f))
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (m *mockStore) GetFeedback(_ context.Context, externalID string) (*feedback.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.feedbackIndex(externalID)
	if i < 0 {
		return nil, fmt.Errorf("get feedback %s: %w", externalID, domain.ErrNotFound)
	}
	m.feedback[i].Read = true
	f := m.feedbackView(m.feedback[i])
	return &f, nil
}

func (m *mockStore) UpdateFeedback(_ context.Context, externalID string, req *feedback.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.feedbackIndex(externalID)
	if i < 0 {
		return fmt.Errorf("update feedback %s: %w", externalID, domain.ErrNotFound)
	}
	m.feedback[i].Message, m.feedback[i].Star = req.Message, req.Star
	return nil
}

func (m *mockStore) DeleteFeedback(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.feedbackIndex(externalID)
	if i < 0 {
		return fmt.Errorf("delete feedback %s: %w", externalID, domain.ErrNotFound)
	}
	m.feedback = slices.Delete(m.feedback, i, i+1)
	return nil
}

// --- dashboard ---

func (m *mockStore) ClientCounts(ctx context.Context) (dashboard.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := dashboard.Counts{Tickets: map[maintenance.Status]int{}}
	for _, p := range m.properties {
		if scoped(ctx, p.ClientID) && !p.Archived {
			c.Properties++
		}
	}
	for _, a := range m.apartments {
		if !scoped(ctx, a.ClientID) {
			continue
		}
		c.Apartments++
		if a.Occupied() {
			c.RentedApartments++
		}
	}
	for _, t := range m.tickets {
		if scoped(ctx, t.ClientID) {
			c.Tickets[t.Status]++
		}
	}
	return c, nil
}
