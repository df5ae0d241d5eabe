package messagequeue

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectRealtimeUser, SubjectRealtimeRoom:
		var p RealtimePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Target == "" || p.Event == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("target and event are required"))
		}
	case SubjectSessionsRevoked:
		var p SessionsRevokedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}
