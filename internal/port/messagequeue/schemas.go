package messagequeue

import "github.com/goccy/go-json"

// RealtimePayload is the schema for realtime.user and realtime.room messages.
type RealtimePayload struct {
	Origin  string          `json:"origin"` // publishing instance id
	Target  string          `json:"target"` // user id or room name
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SessionsRevokedPayload is the schema for sessions.revoked messages.
type SessionsRevokedPayload struct {
	UserID string   `json:"user_id"`
	Tokens []string `json:"tokens"`
}
