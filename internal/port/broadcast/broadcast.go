// Package broadcast defines the port for pushing real-time events to connected clients.
package broadcast

import "context"

// Server to client event names.
const (
	EventNewMessage      = "newMessage"
	EventNewNotification = "newNotification"
	EventTyping          = "typing"
)

// Broadcaster delivers events to live connections. Delivery is best effort:
// offline recipients never receive the push.
type Broadcaster interface {
	// ToUser sends an event to every connection of one user.
	ToUser(ctx context.Context, userID, event string, payload any)
	// ToRoom sends an event to every connection joined to a room.
	ToRoom(ctx context.Context, room, event string, payload any)
}

// SessionCloser closes live connections authenticated with revoked tokens.
type SessionCloser interface {
	CloseSessions(ctx context.Context, tokens []string)
}

// PropertyRoom is the room joined by staff assigned to a property.
func PropertyRoom(propertyID string) string {
	return "property:" + propertyID
}

// ClientRoom is the room joined by a client owner's connections.
func ClientRoom(clientID string) string {
	return "client:" + clientID
}
