// Package presence defines the port for tracking which users hold live
// real-time connections across all instances.
package presence

import "context"

// Tracker counts live connections per user. A user is online while at least
// one connection is open on any instance and has been touched within the
// tracker's TTL.
type Tracker interface {
	Connect(ctx context.Context, userID string) error
	Touch(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	Online(ctx context.Context) ([]string, error)
}
