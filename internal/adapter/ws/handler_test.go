package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

type stubVerifier struct {
	mu  sync.Mutex
	ids map[string]user.Identity
}

func (v *stubVerifier) Verify(_ context.Context, token string) (user.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.ids[token]
	if !ok {
		return user.Identity{}, domain.ErrUnauthorized
	}
	return id, nil
}

func (v *stubVerifier) revoke(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.ids, token)
}

type stubConversations struct {
	mu     sync.Mutex
	sent   []string
	typing []bool
}

func (s *stubConversations) Send(_ context.Context, actor user.Identity, conversationID string, req *conversation.SendRequest) (*conversation.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, actor.UserID+":"+conversationID+":"+req.Text)
	return &conversation.Message{Text: req.Text}, nil
}

func (s *stubConversations) Typing(_ context.Context, _ user.Identity, _ string, typing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = append(s.typing, typing)
	return nil
}

type stubTracker struct {
	mu      sync.Mutex
	events  []string
	touches int
}

func (s *stubTracker) record(ev string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *stubTracker) Connect(_ context.Context, userID string) error {
	s.record("connect:" + userID)
	return nil
}

func (s *stubTracker) Touch(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches++
	return nil
}

func (s *stubTracker) Disconnect(_ context.Context, userID string) error {
	s.record("disconnect:" + userID)
	return nil
}

func (s *stubTracker) IsOnline(context.Context, string) (bool, error) { return false, nil }
func (s *stubTracker) Online(context.Context) ([]string, error)       { return nil, nil }

func (s *stubTracker) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...), s.touches
}

type wsEnv struct {
	srv      *httptest.Server
	hub      *Hub
	tokens   *stubVerifier
	convs    *stubConversations
	presence *stubTracker
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	e := &wsEnv{
		hub: NewHub("i1", nil, time.Second, zap.NewNop()),
		tokens: &stubVerifier{ids: map[string]user.Identity{
			"tenant": {UserID: "u1", Role: user.RoleTenant, ClientID: "c1"},
			"admin":  {UserID: "u0", Role: user.RoleSuperAdmin},
		}},
		convs:    &stubConversations{},
		presence: &stubTracker{},
	}
	h := NewHandler(e.hub, e.tokens, e.convs, e.presence, []string{"*"}, zap.NewNop())
	h.SetHeartbeat(20 * time.Millisecond)
	e.srv = httptest.NewServer(h)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *wsEnv) dial(t *testing.T, ctx context.Context, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws" + query
	return websocket.Dial(ctx, url, nil)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func send(t *testing.T, ctx context.Context, c *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	data, _ := json.Marshal(Message{Type: typ, Payload: raw})
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := e.dial(t, ctx, "")
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response = %v, want 401", resp)
	}
}

func TestHandlerRejectsSuperAdmin(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := e.dial(t, ctx, "?token=admin")
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for superadmin, got err=%v resp=%v", err, resp)
	}
}

func TestHandlerDispatchesEvents(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := e.dial(t, ctx, "?token=tenant")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()
	waitFor(t, func() bool { return e.hub.ConnectionCount() == 1 })

	send(t, ctx, c, EventSendMessage, SendMessagePayload{ConversationID: "42", Text: "hello"})
	send(t, ctx, c, EventStartTyping, TypingPayload{ConversationID: "42"})
	send(t, ctx, c, EventStopTyping, TypingPayload{ConversationID: "42"})

	waitFor(t, func() bool {
		e.convs.mu.Lock()
		defer e.convs.mu.Unlock()
		return len(e.convs.sent) == 1 && len(e.convs.typing) == 2
	})
	if e.convs.sent[0] != "u1:42:hello" {
		t.Errorf("sent = %v", e.convs.sent)
	}
	if !e.convs.typing[0] || e.convs.typing[1] {
		t.Errorf("typing = %v, want [true false]", e.convs.typing)
	}
}

func TestHandlerRepliesWithErrors(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := e.dial(t, ctx, "?token=tenant")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	send(t, ctx, c, EventSendMessage, SendMessagePayload{ConversationID: "42"})

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var p errorPayload
	_ = json.Unmarshal(m.Payload, &p)
	if m.Type != eventError || p.Event != EventSendMessage || p.Message != "message must contain text, image or file" {
		t.Errorf("reply = %s %+v", m.Type, p)
	}
}

func TestHandlerReceivesPushes(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := e.dial(t, ctx, "?token=tenant")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()
	waitFor(t, func() bool { return e.hub.ConnectionCount() == 1 })

	e.hub.ToUser(ctx, "u1", "newNotification", map[string]string{"message": "hi"})

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"newNotification"`) {
		t.Errorf("frame = %s", data)
	}
}

func TestHandlerClosesRevokedSessionOnNextEvent(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := e.dial(t, ctx, "?token=tenant")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()
	waitFor(t, func() bool { return e.hub.ConnectionCount() == 1 })

	e.tokens.revoke("tenant")
	send(t, ctx, c, EventSendMessage, SendMessagePayload{ConversationID: "42", Text: "late"})

	_, _, err = c.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("read err = %v, want policy violation close", err)
	}
	if len(e.convs.sent) != 0 {
		t.Errorf("revoked session still sent %v", e.convs.sent)
	}
	waitFor(t, func() bool { return e.hub.ConnectionCount() == 0 })
}

func TestRoomsFor(t *testing.T) {
	tests := []struct {
		name string
		id   user.Identity
		want []string
	}{
		{"client", user.Identity{Role: user.RoleClient, ClientID: "c1"}, []string{"client:c1"}},
		{"staff", user.Identity{Role: user.RoleJanitor, PropertyIDs: []string{"p1", "p2"}}, []string{"property:p1", "property:p2"}},
		{"tenant", user.Identity{Role: user.RoleTenant, PropertyIDs: []string{"p1"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roomsFor(tt.id)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("roomsFor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandlerKeepsPresenceAlive(t *testing.T) {
	e := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, _, err := e.dial(t, ctx, "?token=tenant")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool {
		_, touches := e.presence.snapshot()
		return touches >= 2
	})

	_ = c.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool {
		events, _ := e.presence.snapshot()
		return len(events) == 2
	})
	events, touches := e.presence.snapshot()
	if events[0] != "connect:u1" || events[1] != "disconnect:u1" {
		t.Errorf("presence events = %v", events)
	}

	time.Sleep(60 * time.Millisecond)
	if _, after := e.presence.snapshot(); after > touches+1 {
		t.Errorf("touches continued after close: %d -> %d", touches, after)
	}
}
