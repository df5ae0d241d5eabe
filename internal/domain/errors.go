// Package domain provides shared domain-level sentinel errors and helpers.
package domain

import (
	"errors"
	"strings"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a state-machine or uniqueness violation.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates malformed or missing input.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized indicates a missing, invalid or insufficiently privileged identity.
var ErrUnauthorized = errors.New("not authorized")

// Detail returns the caller-facing text that follows sentinel in err's
// message ("get x: conflict: apartment is occupied" yields "apartment is
// occupied"), or "" when the sentinel carries no detail.
func Detail(err, sentinel error) string {
	msg, marker := err.Error(), sentinel.Error()+": "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	return msg[i+len(marker):]
}
