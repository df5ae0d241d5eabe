// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject. Every
	// subscriber receives every message (fan-out), which is what the
	// cross-instance relays need. The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects used to relay real-time traffic between instances.
const (
	SubjectRealtimeUser    = "realtime.user"    // event for one user's connections
	SubjectRealtimeRoom    = "realtime.room"    // event for a room, e.g. property:<id>
	SubjectSessionsRevoked = "sessions.revoked" // tokens whose sockets must close
)
