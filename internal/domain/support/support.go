// Package support defines help-desk tickets users open with the platform
// operator.
package support

import (
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// Status is the lifecycle state of a support ticket.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusPending Status = "PENDING"
	StatusClosed  Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusClosed:
		return true
	}
	return false
}

const (
	// PageSize is the number of tickets per page.
	PageSize = 10
	// RecentOpenLimit caps the open-ticket overview.
	RecentOpenLimit = 5
)

// Ticket is a support request raised by a client user.
type Ticket struct {
	ID          string    `json:"-"`
	ExternalID  string    `json:"ticketId"`
	ClientID    string    `json:"-"`
	OpenedBy    string    `json:"-"`
	Status      Status    `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OpenerName  string    `json:"openedByName,omitempty"`
	OpenerEmail string    `json:"openedByEmail,omitempty"`
	OpenerRole  string    `json:"openedByRole,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Filter narrows a ticket listing. Zero fields match everything.
type Filter struct {
	OpenedBy string
	Status   Status
}

// CreateRequest is the input for opening a ticket on one's own behalf.
type CreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// AdminCreateRequest opens a ticket on behalf of a client user. Both ids are
// external ids.
type AdminCreateRequest struct {
	ClientID    string `json:"clientId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Validate checks required fields.
func (r *AdminCreateRequest) Validate() error {
	return domain.Validate(r)
}

// UpdateStatusRequest moves a ticket to another status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// Validate checks the target status is known.
func (r *UpdateStatusRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return domain.Invalid("unknown ticket status %q", r.Status)
	}
	return nil
}
