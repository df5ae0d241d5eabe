// Package ws implements the WebSocket adapter for real-time client communication.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/logger"
	"github.com/Strob0t/PropertyHub/internal/port/messagequeue"
)

// Publisher forwards events to the other instances.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// conn is one live socket bound to the token it authenticated with.
type conn struct {
	userID string
	token  string
	rooms  []string
	write  func(ctx context.Context, data []byte) error
	close  func(code websocket.StatusCode, reason string)
}

type connSet map[*conn]struct{}

// Hub tracks live connections by user, room and token. Events pushed
// through it reach local sockets directly and remote sockets through the
// relay subjects.
type Hub struct {
	origin       string
	pub          Publisher
	writeTimeout time.Duration
	log          *zap.Logger

	mu     sync.RWMutex
	conns  connSet
	users  map[string]connSet
	rooms  map[string]connSet
	tokens map[string]connSet
}

// NewHub creates a hub. origin identifies this instance on the relay
// subjects; pub may be nil for a single-instance deployment.
func NewHub(origin string, pub Publisher, writeTimeout time.Duration, log *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		origin:       origin,
		pub:          pub,
		writeTimeout: writeTimeout,
		log:          log.Named("ws"),
		conns:        make(connSet),
		users:        make(map[string]connSet),
		rooms:        make(map[string]connSet),
		tokens:       make(map[string]connSet),
	}
}

// ToUser implements broadcast.Broadcaster.
func (h *Hub) ToUser(ctx context.Context, userID, event string, payload any) {
	h.fanOut(ctx, messagequeue.SubjectRealtimeUser, userID, event, payload)
}

// ToRoom implements broadcast.Broadcaster.
func (h *Hub) ToRoom(ctx context.Context, room, event string, payload any) {
	h.fanOut(ctx, messagequeue.SubjectRealtimeRoom, room, event, payload)
}

func (h *Hub) fanOut(ctx context.Context, subject, target, event string, payload any) {
	log := logger.FromContext(ctx, h.log)
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error("marshal ws event payload", zap.String("event", event), zap.Error(err))
		return
	}
	h.deliver(ctx, subject, target, event, raw)

	if h.pub == nil {
		return
	}
	data, err := json.Marshal(messagequeue.RealtimePayload{Origin: h.origin, Target: target, Event: event, Payload: raw})
	if err != nil {
		return
	}
	if err := h.pub.Publish(ctx, subject, data); err != nil {
		log.Warn("relay ws event", zap.String("event", event), zap.Error(err))
	}
}

// deliver writes an already encoded payload to the local sockets of target.
func (h *Hub) deliver(ctx context.Context, subject, target, event string, payload json.RawMessage) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	var set connSet
	if subject == messagequeue.SubjectRealtimeRoom {
		set = h.rooms[target]
	} else {
		set = h.users[target]
	}
	targets := make([]*conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.writeTimeout)
		err := c.write(wctx, data)
		cancel()
		if err != nil {
			h.log.Debug("websocket write failed", zap.String("user_id", c.userID), zap.Error(err))
			h.drop(c, websocket.StatusGoingAway, "write failed")
		}
	}
}

// CloseSessions implements broadcast.SessionCloser: every local socket bound
// to one of tokens is closed.
func (h *Hub) CloseSessions(_ context.Context, tokens []string) {
	var victims []*conn
	h.mu.RLock()
	for _, t := range tokens {
		for c := range h.tokens[t] {
			victims = append(victims, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range victims {
		h.drop(c, websocket.StatusPolicyViolation, "session revoked")
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
	join(h.users, c.userID, c)
	join(h.tokens, c.token, c)
	for _, r := range c.rooms {
		join(h.rooms, r, c)
	}
}

// setRooms replaces the rooms of c, for example after the user's property
// scope changed.
func (h *Hub) setRooms(c *conn, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	for _, r := range c.rooms {
		leave(h.rooms, r, c)
	}
	c.rooms = rooms
	for _, r := range rooms {
		join(h.rooms, r, c)
	}
}

// remove unregisters c and reports whether it was still registered.
func (h *Hub) remove(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return false
	}
	delete(h.conns, c)
	leave(h.users, c.userID, c)
	leave(h.tokens, c.token, c)
	for _, r := range c.rooms {
		leave(h.rooms, r, c)
	}
	return true
}

func (h *Hub) drop(c *conn, code websocket.StatusCode, reason string) {
	if h.remove(c) && c.close != nil {
		c.close(code, reason)
	}
}

func join(m map[string]connSet, key string, c *conn) {
	set, ok := m[key]
	if !ok {
		set = make(connSet)
		m[key] = set
	}
	set[c] = struct{}{}
}

func leave(m map[string]connSet, key string, c *conn) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m, key)
	}
}
