package ws

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/middleware"
	"github.com/Strob0t/PropertyHub/internal/port/broadcast"
	"github.com/Strob0t/PropertyHub/internal/port/presence"
)

const (
	readLimit        = 64 << 10
	defaultHeartbeat = 30 * time.Second
)

var errMalformed = domain.Invalid("malformed event")

// Verifier checks that a session token is still live.
type Verifier interface {
	Verify(ctx context.Context, token string) (user.Identity, error)
}

// Conversations is the messaging core driven by client events.
type Conversations interface {
	Send(ctx context.Context, actor user.Identity, conversationID string, req *conversation.SendRequest) (*conversation.Message, error)
	Typing(ctx context.Context, actor user.Identity, conversationID string, typing bool) error
}

// Handler upgrades authenticated requests to WebSocket connections and
// dispatches client events. Every event re-verifies the connection's token,
// so a revoked session stops acting even before its socket is closed.
type Handler struct {
	hub            *Hub
	tokens         Verifier
	conversations  Conversations
	presence       presence.Tracker
	heartbeat      time.Duration
	originPatterns []string
	log            *zap.Logger
}

// NewHandler creates the /ws handler. tracker may be nil.
func NewHandler(hub *Hub, tokens Verifier, conversations Conversations, tracker presence.Tracker, originPatterns []string, log *zap.Logger) *Handler {
	return &Handler{
		hub:            hub,
		tokens:         tokens,
		conversations:  conversations,
		presence:       tracker,
		heartbeat:      defaultHeartbeat,
		originPatterns: originPatterns,
		log:            log.Named("ws"),
	}
}

// SetHeartbeat sets how often an open connection refreshes its presence.
// It must stay below the tracker's TTL.
func (h *Handler) SetHeartbeat(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, true)
	if token == "" {
		http.Error(w, `{"success":false,"message":"you are not authorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := h.tokens.Verify(r.Context(), token)
	if err != nil || id.Role == user.RoleSuperAdmin {
		http.Error(w, `{"success":false,"message":"you are not authorized"}`, http.StatusUnauthorized)
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	wsConn.SetReadLimit(readLimit)

	c := &conn{
		userID: id.UserID,
		token:  token,
		rooms:  roomsFor(id),
		write: func(ctx context.Context, data []byte) error {
			return wsConn.Write(ctx, websocket.MessageText, data)
		},
		close: func(code websocket.StatusCode, reason string) {
			_ = wsConn.Close(code, reason)
		},
	}
	h.hub.add(c)
	h.connected(r.Context(), id.UserID)
	h.log.Debug("websocket connected", zap.String("user_id", id.UserID))

	defer func() {
		h.hub.drop(c, websocket.StatusNormalClosure, "")
		h.disconnected(context.WithoutCancel(r.Context()), id.UserID)
		h.log.Debug("websocket disconnected", zap.String("user_id", id.UserID))
	}()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go h.keepAlive(ctx, id.UserID)

	for {
		typ, data, err := wsConn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		if !h.handle(ctx, c, data) {
			return
		}
	}
}

// handle runs one client event. It returns false once the connection's
// session is no longer valid.
func (h *Handler) handle(ctx context.Context, c *conn, data []byte) bool {
	id, err := h.tokens.Verify(ctx, c.token)
	if err != nil {
		h.hub.drop(c, websocket.StatusPolicyViolation, "session expired")
		return false
	}
	if rooms := roomsFor(id); !slices.Equal(rooms, c.rooms) {
		h.hub.setRooms(c, rooms)
	}
	ctx = user.ContextWithIdentity(ctx, id)

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(ctx, c, "", errMalformed)
		return true
	}

	switch msg.Type {
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.reply(ctx, c, msg.Type, errMalformed)
			return true
		}
		_, err = h.conversations.Send(ctx, id, p.ConversationID, &conversation.SendRequest{Text: p.Text, Image: p.Image, File: p.File})
	case EventStartTyping, EventStopTyping:
		var p TypingPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.reply(ctx, c, msg.Type, errMalformed)
			return true
		}
		err = h.conversations.Typing(ctx, id, p.ConversationID, msg.Type == EventStartTyping)
	default:
		err = domain.Invalid("unknown event %q", msg.Type)
	}
	if err != nil {
		h.reply(ctx, c, msg.Type, err)
	}
	return true
}

// reply reports a failed event to its sender only.
func (h *Handler) reply(ctx context.Context, c *conn, event string, err error) {
	payload, _ := json.Marshal(errorPayload{Event: event, Message: clientMessage(err)})
	data, _ := json.Marshal(Message{Type: eventError, Payload: payload})
	wctx, cancel := context.WithTimeout(ctx, h.hub.writeTimeout)
	defer cancel()
	if werr := c.write(wctx, data); werr != nil {
		h.log.Debug("websocket reply failed", zap.Error(werr))
	}
}

func (h *Handler) connected(ctx context.Context, userID string) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Connect(ctx, userID); err != nil {
		h.log.Warn("presence connect", zap.String("user_id", userID), zap.Error(err))
	}
}

// keepAlive touches the user's presence until ctx ends.
func (h *Handler) keepAlive(ctx context.Context, userID string) {
	if h.presence == nil {
		return
	}
	t := time.NewTicker(h.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := h.presence.Touch(ctx, userID); err != nil && ctx.Err() == nil {
				h.log.Warn("presence touch", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
}

func (h *Handler) disconnected(ctx context.Context, userID string) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Disconnect(ctx, userID); err != nil {
		h.log.Warn("presence disconnect", zap.String("user_id", userID), zap.Error(err))
	}
}

// roomsFor returns the rooms a connection joins: client owners their
// client's room, staff the rooms of their assigned properties.
func roomsFor(id user.Identity) []string {
	switch {
	case id.Role == user.RoleClient:
		return []string{broadcast.ClientRoom(id.ClientID)}
	case id.Role.IsStaff():
		rooms := make([]string, 0, len(id.PropertyIDs))
		for _, p := range id.PropertyIDs {
			rooms = append(rooms, broadcast.PropertyRoom(p))
		}
		return rooms
	}
	return nil
}

// clientMessage turns a service error into text safe to show the sender.
func clientMessage(err error) string {
	for _, sentinel := range []error{domain.ErrValidation, domain.ErrNotFound, domain.ErrConflict, domain.ErrUnauthorized} {
		if errors.Is(err, sentinel) {
			if d := domain.Detail(err, sentinel); d != "" {
				return d
			}
			return sentinel.Error()
		}
	}
	return "something went wrong"
}
