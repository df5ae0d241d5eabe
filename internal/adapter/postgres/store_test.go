package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PropertyHub/internal/adapter/postgres"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/feedback"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
	"github.com/Strob0t/PropertyHub/internal/domain/support"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@example.test"
}

// fixture is one client with an owner, a property and an apartment.
type fixture struct {
	ctx       context.Context
	owner     *user.User
	client    *user.Client
	property  *property.Property
	apartment *property.Apartment
}

func newFixture(t *testing.T, store *postgres.Store) *fixture {
	t.Helper()
	bg := context.Background()

	owner := &user.User{
		Email: uniqueEmail("owner"), Name: "Owner", PasswordHash: "x",
		Role: user.RoleClient, Status: user.StatusNew, Permissions: user.NewPermissionSet(),
	}
	client := &user.Client{CompanyName: "Acme"}
	if err := store.CreateClientOwner(bg, owner, client); err != nil {
		t.Fatalf("CreateClientOwner: %v", err)
	}
	ctx := user.ContextWithClient(bg, client.ID)

	p := &property.Property{Name: "Sunset Towers"}
	if err := store.CreateProperty(ctx, p); err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	a := &property.Apartment{PropertyID: p.ID, Floor: "3", Door: "b"}
	if err := store.CreateApartment(ctx, a); err != nil {
		t.Fatalf("CreateApartment: %v", err)
	}
	return &fixture{ctx: ctx, owner: owner, client: client, property: p, apartment: a}
}

func (f *fixture) addUser(t *testing.T, store *postgres.Store, role user.Role, propertyIDs ...string) *user.User {
	t.Helper()
	u := &user.User{
		Email: uniqueEmail(string(role)), Name: string(role), PasswordHash: "x",
		Role: role, Status: user.StatusNew, Permissions: user.NewPermissionSet(),
		ClientID: f.client.ID, PropertyIDs: propertyIDs,
	}
	if err := store.CreateUser(f.ctx, u); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return u
}

func (f *fixture) moveIn(t *testing.T, store *postgres.Store, tenant *user.User, start time.Time) {
	t.Helper()
	err := store.AssignTenant(f.ctx, tenant.ID, f.apartment.ID, property.Lease{StartDate: &start, Rent: 1200, Deposit: 2400})
	if err != nil {
		t.Fatalf("AssignTenant: %v", err)
	}
}

// --------------------------------------------------------------------------
// Users and client isolation
// --------------------------------------------------------------------------

func TestStore_UserEmailUnique(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)

	dup := &user.User{
		Email: f.owner.Email, Name: "Dup", PasswordHash: "x", Role: user.RoleTenant,
		Status: user.StatusNew, ClientID: f.client.ID, Permissions: user.NewPermissionSet(),
	}
	err := store.CreateUser(f.ctx, dup)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	got, err := store.GetUserByEmail(context.Background(), "  "+f.owner.Email+"  ")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != f.owner.ID {
		t.Fatalf("expected owner %s, got %s", f.owner.ID, got.ID)
	}
}

func TestStore_ClientIsolation(t *testing.T) {
	store := setupStore(t)
	a := newFixture(t, store)
	b := newFixture(t, store)

	t.Run("Property", func(t *testing.T) {
		_, err := store.GetPropertyByExternalID(b.ctx, a.property.ExternalID)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound across clients, got %v", err)
		}
	})

	t.Run("ApartmentOnForeignProperty", func(t *testing.T) {
		err := store.CreateApartment(b.ctx, &property.Apartment{PropertyID: a.property.ID, Floor: "1", Door: "a"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Unscoped", func(t *testing.T) {
		items, total, err := store.ListProperties(context.Background(), domain.NewPageRequest("1", "", 10))
		if err != nil {
			t.Fatalf("ListProperties: %v", err)
		}
		if total != 0 || len(items) != 0 {
			t.Fatalf("unscoped context must see nothing, got %d", total)
		}
	})

	t.Run("StaffProperties", func(t *testing.T) {
		_, err := store.ResolvePropertyIDs(b.ctx, []string{a.property.ExternalID})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound resolving foreign property, got %v", err)
		}
	})
}

// --------------------------------------------------------------------------
// Token ring
// --------------------------------------------------------------------------

func TestStore_TokenRing(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	ctx := context.Background()
	id := f.owner.ID

	var evicted []string
	for i := range 6 {
		ev, err := store.PushToken(ctx, id, fmt.Sprintf("tok-%d", i), 5)
		if err != nil {
			t.Fatalf("PushToken: %v", err)
		}
		evicted = append(evicted, ev...)
	}
	if len(evicted) != 1 || evicted[0] != "tok-0" {
		t.Fatalf("expected tok-0 evicted, got %v", evicted)
	}

	if err := store.RemoveTokens(ctx, id, "tok-3"); err != nil {
		t.Fatalf("RemoveTokens: %v", err)
	}
	u, err := store.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	want := []string{"tok-1", "tok-2", "tok-4", "tok-5"}
	if fmt.Sprint(u.Tokens) != fmt.Sprint(want) {
		t.Fatalf("expected ring %v, got %v", want, u.Tokens)
	}

	removed, err := store.RetainToken(ctx, id, "tok-4")
	if err != nil {
		t.Fatalf("RetainToken: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed, got %v", removed)
	}

	n, err := store.PruneTokens(ctx, func(tok string) bool { return tok != "tok-4" })
	if err != nil {
		t.Fatalf("PruneTokens: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected tok-4 pruned, removed %d", n)
	}
}

func TestStore_TokenRingConcurrentPush(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	ctx := context.Background()

	const logins = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		evicted int
	)
	for i := range logins {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev, err := store.PushToken(ctx, f.owner.ID, fmt.Sprintf("c-%d", i), 5)
			if err != nil {
				t.Errorf("PushToken: %v", err)
				return
			}
			mu.Lock()
			evicted += len(ev)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	u, err := store.GetUser(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(u.Tokens) != 5 {
		t.Fatalf("expected ring of 5, got %d", len(u.Tokens))
	}
	if evicted != logins-5 {
		t.Fatalf("expected %d evictions, got %d", logins-5, evicted)
	}
}

// --------------------------------------------------------------------------
// Tenancy
// --------------------------------------------------------------------------

func TestStore_AssignTenant(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	tenant := f.addUser(t, store, user.RoleTenant)
	other := f.addUser(t, store, user.RoleTenant)
	f.moveIn(t, store, tenant, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	t.Run("OccupiedByAnother", func(t *testing.T) {
		start := time.Now()
		err := store.AssignTenant(f.ctx, other.ID, f.apartment.ID, property.Lease{StartDate: &start})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("DeleteOccupied", func(t *testing.T) {
		err := store.DeleteApartment(f.ctx, f.apartment.ID)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("MoveVacatesPrevious", func(t *testing.T) {
		next := &property.Apartment{PropertyID: f.property.ID, Floor: "4", Door: "a"}
		if err := store.CreateApartment(f.ctx, next); err != nil {
			t.Fatalf("CreateApartment: %v", err)
		}
		start := time.Now()
		if err := store.AssignTenant(f.ctx, tenant.ID, next.ID, property.Lease{StartDate: &start}); err != nil {
			t.Fatalf("AssignTenant: %v", err)
		}
		prev, err := store.GetApartment(f.ctx, f.apartment.ID)
		if err != nil {
			t.Fatalf("GetApartment: %v", err)
		}
		if prev.Occupied() {
			t.Fatal("previous apartment still occupied")
		}
		u, err := store.GetUser(f.ctx, tenant.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if len(u.ApartmentIDs) != 1 || u.ApartmentIDs[0] != next.ID {
			t.Fatalf("expected tenant in %s, got %v", next.ID, u.ApartmentIDs)
		}
	})
}

// --------------------------------------------------------------------------
// Maintenance
// --------------------------------------------------------------------------

func TestStore_TicketTerminalStatus(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	tenant := f.addUser(t, store, user.RoleTenant)
	f.moveIn(t, store, tenant, time.Now())

	tk := &maintenance.Ticket{
		PropertyID: f.property.ID, ApartmentID: f.apartment.ID, TenantID: tenant.ID,
		Type: "Plumbing", Details: "Leak",
	}
	if err := store.CreateTicket(f.ctx, tk); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if tk.Status != maintenance.StatusPending {
		t.Fatalf("expected PENDING, got %s", tk.Status)
	}

	got, err := store.UpdateTicketStatus(f.ctx, tk.ID, maintenance.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateTicketStatus: %v", err)
	}
	if got.Status != maintenance.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}

	_, err = store.UpdateTicketStatus(f.ctx, tk.ID, maintenance.StatusCancelled)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	again, err := store.GetTicketByExternalID(f.ctx, tk.ExternalID)
	if err != nil {
		t.Fatalf("GetTicketByExternalID: %v", err)
	}
	if again.Status != maintenance.StatusCompleted {
		t.Fatalf("status changed after terminal: %s", again.Status)
	}
}

// --------------------------------------------------------------------------
// Conversations
// --------------------------------------------------------------------------

func TestStore_ResolveConversationConcurrent(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	a := f.addUser(t, store, user.RoleTenant)
	b := f.addUser(t, store, user.RoleManager)

	key, err := conversation.ForPair(a.ID, b.ID)
	if err != nil {
		t.Fatalf("ForPair: %v", err)
	}

	const callers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		created int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, isNew, err := store.ResolveConversation(f.ctx, key, &conversation.Conversation{})
			if err != nil {
				t.Errorf("ResolveConversation: %v", err)
				return
			}
			mu.Lock()
			ids[c.ExternalID] = true
			if isNew {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("expected a single conversation, got %d", len(ids))
	}
	if created != 1 {
		t.Fatalf("expected exactly one creator, got %d", created)
	}
}

func TestStore_ConversationArchivePerViewer(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	a := f.addUser(t, store, user.RoleTenant)
	b := f.addUser(t, store, user.RoleManager)

	key, _ := conversation.ForPair(a.ID, b.ID)
	c, _, err := store.ResolveConversation(f.ctx, key, nil)
	if err != nil {
		t.Fatalf("ResolveConversation: %v", err)
	}
	msg := &conversation.Message{ConversationID: c.ID, SenderID: a.ID, Text: "hello"}
	if err := store.AppendMessage(f.ctx, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := store.SetArchived(f.ctx, c.ID, a.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	idA := user.Identity{UserID: a.ID, Role: a.Role, ClientID: f.client.ID}
	idB := user.Identity{UserID: b.ID, Role: b.Role, ClientID: f.client.ID}

	activeA, err := store.ListConversations(f.ctx, idA, false)
	if err != nil {
		t.Fatalf("ListConversations(A): %v", err)
	}
	if len(activeA) != 0 {
		t.Fatalf("archived conversation still active for A")
	}
	activeB, err := store.ListConversations(f.ctx, idB, false)
	if err != nil {
		t.Fatalf("ListConversations(B): %v", err)
	}
	if len(activeB) != 1 || activeB[0].ID != c.ID {
		t.Fatalf("expected conversation active for B, got %d", len(activeB))
	}
	if activeB[0].LastMessage == nil || activeB[0].LastMessage.Text != "hello" {
		t.Fatalf("expected last message preview, got %+v", activeB[0].LastMessage)
	}

	recent, err := store.RecentMessages(f.ctx, idB, 5)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 1 || recent[0].SenderExternalID != a.ExternalID {
		t.Fatalf("unexpected recent messages %+v", recent)
	}
}

// --------------------------------------------------------------------------
// Bills
// --------------------------------------------------------------------------

func TestStore_InsertBillIfAbsentConcurrent(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	tenant := f.addUser(t, store, user.RoleTenant)
	start := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	f.moveIn(t, store, tenant, start)

	cycle := billing.CycleFor(start)
	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := &billing.Bill{
				ClientID: f.client.ID, PropertyID: f.property.ID, ApartmentID: f.apartment.ID,
				TenantID: tenant.ID, Type: billing.TypeRent, Cycle: cycle, Amount: 1200,
				Description: billing.RentDescription(cycle),
			}
			ok, err := store.InsertBillIfAbsent(context.Background(), b)
			if err != nil {
				t.Errorf("InsertBillIfAbsent: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected one bill, got %d", created)
	}
	bills, total, err := store.ListBills(f.ctx, billing.Filter{TenantID: tenant.ID}, domain.NewPageRequest("1", "", 10))
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	if total != 1 || bills[0].Period != billing.SecondHalf {
		t.Fatalf("unexpected bills %+v", bills)
	}
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

func TestStore_RedeemCouponOnce(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	other := newFixture(t, store)
	now := time.Now().UTC()

	c := &subscription.Coupon{
		Code: uuid.NewString(), CodeType: subscription.CodeTest, Discount: 1,
		ExpiresAt: now.Add(24 * time.Hour), Active: true, MaxUses: 1,
	}
	if err := store.CreateCoupon(context.Background(), c); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	r, err := store.RedeemCoupon(f.ctx, c.Code, f.client.ID, f.owner.ID, now)
	if err != nil {
		t.Fatalf("RedeemCoupon: %v", err)
	}
	if r.Plan != "test" || !r.ValidUntil.After(now) {
		t.Fatalf("unexpected redemption %+v", r)
	}
	cl, err := store.GetClient(context.Background(), f.client.ID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if !cl.Subscribed {
		t.Fatal("client not subscribed after redemption")
	}

	_, err = store.RedeemCoupon(other.ctx, c.Code, other.client.ID, other.owner.ID, now)
	if !errors.Is(err, subscription.ErrCouponNotValid) {
		t.Fatalf("expected ErrCouponNotValid on second redemption, got %v", err)
	}

	if err := store.DeleteCoupon(context.Background(), c.ExternalID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting used coupon, got %v", err)
	}
}

func TestStore_MakePlanPopular(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := &subscription.Plan{Name: "Basic " + uuid.NewString()[:6], Price: 10, DurationDays: 30}
	second := &subscription.Plan{Name: "Pro " + uuid.NewString()[:6], Price: 20, DurationDays: 30}
	for _, p := range []*subscription.Plan{first, second} {
		if err := store.CreatePlan(ctx, p); err != nil {
			t.Fatalf("CreatePlan: %v", err)
		}
		t.Cleanup(func() { _ = store.DeletePlan(ctx, p.ExternalID) })
	}

	if err := store.MakePlanPopular(ctx, first.ExternalID); err != nil {
		t.Fatalf("MakePlanPopular(first): %v", err)
	}
	if err := store.MakePlanPopular(ctx, second.ExternalID); err != nil {
		t.Fatalf("MakePlanPopular(second): %v", err)
	}

	plans, err := store.ListPlans(ctx, false)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	popular := 0
	for _, p := range plans {
		if p.Popular {
			popular++
			if p.ExternalID != second.ExternalID {
				t.Fatalf("expected %s popular, got %s", second.Name, p.Name)
			}
		}
	}
	if popular != 1 {
		t.Fatalf("expected exactly one popular plan, got %d", popular)
	}
}

// --------------------------------------------------------------------------
// Platform administration
// --------------------------------------------------------------------------

func TestStore_ClientArchiveAndCounts(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	bg := context.Background()

	got, err := store.GetClientByExternalID(bg, f.client.ExternalID)
	if err != nil {
		t.Fatalf("GetClientByExternalID: %v", err)
	}
	if got.OwnerEmail != f.owner.Email || got.Archived {
		t.Fatalf("client = %+v", got)
	}
	if err := store.SetClientArchived(bg, f.client.ID, true); err != nil {
		t.Fatalf("SetClientArchived: %v", err)
	}
	if got, _ = store.GetClient(bg, f.client.ID); !got.Archived {
		t.Fatal("client not archived")
	}

	tenant := f.addUser(t, store, user.RoleTenant)
	f.moveIn(t, store, tenant, time.Now())
	ids, err := store.ClientUserIDs(bg, f.client.ID)
	if err != nil {
		t.Fatalf("ClientUserIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("client users = %v, want owner and tenant", ids)
	}

	page, total, err := store.ListClients(bg, domain.PageRequest{Page: 1, Size: 10, Query: f.client.ExternalID})
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if total != 1 || page[0].ID != f.client.ID {
		t.Fatalf("ListClients = %d %+v", total, page)
	}

	counts, err := store.ClientCounts(f.ctx)
	if err != nil {
		t.Fatalf("ClientCounts: %v", err)
	}
	if counts.Properties != 1 || counts.Apartments != 1 || counts.RentedApartments != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestStore_SupportAndFeedback(t *testing.T) {
	store := setupStore(t)
	f := newFixture(t, store)
	bg := context.Background()

	tk := &support.Ticket{ClientID: f.client.ID, OpenedBy: f.owner.ID, Title: "Invoices", Description: "missing"}
	if err := store.CreateSupportTicket(bg, tk); err != nil {
		t.Fatalf("CreateSupportTicket: %v", err)
	}
	mine, total, err := store.ListSupportTickets(bg, support.Filter{OpenedBy: f.owner.ID}, domain.PageRequest{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("ListSupportTickets: %v", err)
	}
	if total != 1 || mine[0].CompanyName != "Acme" || mine[0].Status != support.StatusOpen {
		t.Fatalf("tickets = %+v", mine)
	}
	closed, err := store.UpdateSupportTicketStatus(bg, tk.ExternalID, support.StatusClosed)
	if err != nil {
		t.Fatalf("UpdateSupportTicketStatus: %v", err)
	}
	if closed.Status != support.StatusClosed {
		t.Fatalf("status = %s", closed.Status)
	}

	fb := &feedback.Feedback{AuthorID: f.owner.ID, Message: "nice", Star: 4}
	if err := store.CreateFeedback(bg, fb); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	got, err := store.GetFeedback(bg, fb.ExternalID)
	if err != nil {
		t.Fatalf("GetFeedback: %v", err)
	}
	if !got.Read || got.AuthorEmail != f.owner.Email {
		t.Fatalf("feedback = %+v", got)
	}
	if err := store.DeleteFeedback(bg, fb.ExternalID); err != nil {
		t.Fatalf("DeleteFeedback: %v", err)
	}
	if _, err := store.GetFeedback(bg, fb.ExternalID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted feedback: %v", err)
	}
}
