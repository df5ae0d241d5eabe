// Package tokenstore defines the session liveness port: a fast shared
// key-value record of which issued tokens are still live.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotLive is returned when a token has no live record.
var ErrNotLive = errors.New("token not live")

// LivenessStore records live session tokens. A token without a live record is
// rejected even if its signature and expiry are valid.
type LivenessStore interface {
	// MarkLive records token as live for userID until ttl elapses.
	MarkLive(ctx context.Context, token, userID string, ttl time.Duration) error
	// LiveUser returns the user id recorded for token, or ErrNotLive.
	LiveUser(ctx context.Context, token string) (string, error)
	// Revoke deletes the live records of the given tokens.
	Revoke(ctx context.Context, tokens ...string) error
}
