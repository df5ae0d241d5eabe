// Package feedback defines product feedback users send to the platform
// operator.
package feedback

import (
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// PageSize is the number of feedback entries per page.
const PageSize = 5

// Feedback is a rated message from a user.
type Feedback struct {
	ID          string    `json:"-"`
	ExternalID  string    `json:"feedbackId"`
	AuthorID    string    `json:"-"`
	AuthorName  string    `json:"authorName,omitempty"`
	AuthorEmail string    `json:"authorEmail,omitempty"`
	AuthorRole  string    `json:"authorRole,omitempty"`
	Message     string    `json:"message"`
	Star        int       `json:"star"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Request is the input for sending or editing feedback. Star is 0 to 5,
// 0 meaning unrated.
type Request struct {
	Message string `json:"message" validate:"required"`
	Star    int    `json:"star"`
}

// MaxStars is the best rating.
const MaxStars = 5

// Validate checks the message and the star range.
func (r *Request) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.Star < 0 || r.Star > MaxStars {
		return domain.Invalid("star must be between 0 and %d", MaxStars)
	}
	return nil
}
