// Package notice defines client announcements targeted at properties.
package notice

import (
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// PageSize is the number of notices per page.
const PageSize = 5

// Notice is an announcement from a client or its staff.
type Notice struct {
	ID          string     `json:"-"`
	ExternalID  string     `json:"noticeId"`
	ClientID    string     `json:"-"`
	AuthorID    string     `json:"-"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Date        time.Time  `json:"date"`
	EventDate   *time.Time `json:"dateEvent,omitempty"`
	PropertyIDs []string   `json:"-"`
	Properties  []string   `json:"properties"`
	Archived    bool       `json:"archived"`
	ArchivedBy  string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateRequest is the input for publishing a notice. Properties are external ids.
type CreateRequest struct {
	Title      string     `json:"title" validate:"required"`
	Body       string     `json:"body" validate:"required"`
	Date       *time.Time `json:"date"`
	EventDate  *time.Time `json:"dateEvent"`
	Properties []string   `json:"properties" validate:"required,min=1"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}
