package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/tokenstore"
)

// fakeLiveness is an in-memory tokenstore.LivenessStore.
type fakeLiveness struct {
	mu    sync.Mutex
	live  map[string]string
	fails error

	// beforeMark runs at the start of MarkLive, outside the lock.
	beforeMark func()
}

func newFakeLiveness() *fakeLiveness {
	return &fakeLiveness{live: map[string]string{}}
}

func (f *fakeLiveness) MarkLive(_ context.Context, token, userID string, _ time.Duration) error {
	if f.beforeMark != nil {
		f.beforeMark()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return f.fails
	}
	f.live[token] = userID
	return nil
}

func (f *fakeLiveness) LiveUser(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.live[token]
	if !ok {
		return "", tokenstore.ErrNotLive
	}
	return uid, nil
}

func (f *fakeLiveness) Revoke(_ context.Context, tokens ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tokens {
		delete(f.live, t)
	}
	return nil
}

func (f *fakeLiveness) isLive(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.live[token]
	return ok
}

// fakeCache is a map-backed SnapshotCache that counts loads.
type fakeCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) GetOrLoad(ctx context.Context, key string, _ time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if v, ok := c.data[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.loads++
	c.mu.Unlock()
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.data[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

type pushed struct {
	target string
	event  string
}

// fakeBroadcaster records pushes. Room pushes are recorded with a "room:" prefix.
type fakeBroadcaster struct {
	mu     sync.Mutex
	pushes []pushed
}

func (b *fakeBroadcaster) ToUser(_ context.Context, userID, event string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes = append(b.pushes, pushed{target: userID, event: event})
}

func (b *fakeBroadcaster) ToRoom(_ context.Context, room, event string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes = append(b.pushes, pushed{target: "room:" + room, event: event})
}

func (b *fakeBroadcaster) targets(event string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, p := range b.pushes {
		if p.event == event {
			out = append(out, p.target)
		}
	}
	return out
}

func testAuthConfig() config.Auth {
	return config.Auth{
		JWTSecret:  "test-secret-key-must-be-long-enough",
		TokenTTL:   time.Hour,
		MaxTokens:  user.MaxActiveTokens,
		BcryptCost: 4, // low cost for fast tests
	}
}

// testEnv wires every service against one mock store.
type testEnv struct {
	store   *mockStore
	live    *fakeLiveness
	cache   *fakeCache
	pub     *fakePublisher
	push    *fakeBroadcaster
	tokens  *TokenService
	auth    *AuthService
	staff   *StaffService
	props   *PropertyService
	notices *NoticeService
	notify  *NotificationService
	convs   *ConversationService
	maint   *MaintenanceService
	billing *BillingService
	subs    *SubscriptionService
	reports *ReportService
	support *SupportService
	fb      *FeedbackService
	dash    *DashboardService
	clients *ClientService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	cfg := testAuthConfig()
	e := &testEnv{
		store: newMockStore(),
		live:  newFakeLiveness(),
		cache: newFakeCache(),
		pub:   &fakePublisher{},
		push:  &fakeBroadcaster{},
	}
	e.tokens = NewTokenService(e.store, e.live, e.cache, e.pub, cfg, nil, log)
	e.auth = NewAuthService(e.store, e.tokens, cfg, log)
	e.staff = NewStaffService(e.store, e.tokens, cfg, log)
	e.props = NewPropertyService(e.store, e.tokens)
	e.notices = NewNoticeService(e.store)
	e.notify = NewNotificationService(e.store, e.push, log)
	e.convs = NewConversationService(e.store, e.push, log)
	e.maint = NewMaintenanceService(e.store, e.convs, e.notify, nil, log)
	e.billing = NewBillingService(e.store, nil, log)
	e.subs = NewSubscriptionService(e.store, e.tokens, nil, log)
	e.reports = NewReportService(e.store)
	e.support = NewSupportService(e.store, e.notify, log)
	e.fb = NewFeedbackService(e.store, e.notify, log)
	e.dash = NewDashboardService(e.store)
	e.clients = NewClientService(e.store, e.tokens, log)
	return e
}

// register signs up a client owner and returns its verified identity.
func (e *testEnv) register(t *testing.T, email string) user.Identity {
	t.Helper()
	ctx := context.Background()
	resp, err := e.auth.Register(ctx, &user.RegisterRequest{Name: "Owner " + email, Email: email, Password: "Password123"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	id, err := e.tokens.Verify(ctx, resp.Token)
	if err != nil {
		t.Fatalf("verify owner token: %v", err)
	}
	return id
}

// login signs a user in and returns its verified identity.
func (e *testEnv) login(t *testing.T, email string) user.Identity {
	t.Helper()
	ctx := context.Background()
	resp, err := e.auth.Login(ctx, &user.LoginRequest{Email: email, Password: "Password123"})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	id, err := e.tokens.Verify(ctx, resp.Token)
	if err != nil {
		t.Fatalf("verify token of %s: %v", email, err)
	}
	return id
}

// world is a client with one property, one apartment, a tenant living in it
// and a maintainer assigned to the property.
type world struct {
	owner      user.Identity
	tenant     user.Identity
	maintainer user.Identity
	property   *property.Property
	apartment  *property.Apartment
}

func (e *testEnv) buildWorld(t *testing.T, email string, leaseStart time.Time) world {
	t.Helper()
	w := world{owner: e.register(t, email)}
	ctx := user.ContextWithIdentity(context.Background(), w.owner)

	var err error
	w.property, err = e.props.CreateProperty(ctx, &property.CreatePropertyRequest{Name: "Maple Court"})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	w.apartment, err = e.props.CreateApartment(ctx, w.property.ExternalID, &property.CreateApartmentRequest{Floor: "3", Door: "B"})
	if err != nil {
		t.Fatalf("create apartment: %v", err)
	}

	tenant, err := e.staff.CreateTenant(ctx, w.owner, &user.CreateTenantRequest{
		Name: "Tess Tenant", Email: "tenant." + email, Password: "Password123",
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	w.apartment, err = e.props.AssignHome(ctx, tenant.ExternalID, &property.AssignHomeRequest{
		ApartmentID: w.apartment.ExternalID, LeaseStartDate: &leaseStart, Rent: 950, Deposit: 1900,
	})
	if err != nil {
		t.Fatalf("assign home: %v", err)
	}

	_, err = e.staff.CreateStaff(ctx, w.owner, &user.CreateStaffRequest{
		Name: "Max Maintainer", Email: "maint." + email, Password: "Password123",
		Role:        user.RoleMaintainer,
		Permissions: []string{string(user.PermReadMaintenance), string(user.PermUpdateMaintenance)},
		Properties:  []string{w.property.ExternalID},
	})
	if err != nil {
		t.Fatalf("create maintainer: %v", err)
	}

	w.tenant = e.login(t, "tenant."+email)
	w.maintainer = e.login(t, "maint."+email)
	return w
}

func scope(id user.Identity) context.Context {
	return user.ContextWithIdentity(context.Background(), id)
}

func zapNop() *zap.Logger { return zap.NewNop() }
