// Package maintenance defines maintenance tickets and their status machine.
package maintenance

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "INPROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// ValidStatuses is the set of all statuses.
var ValidStatuses = map[Status]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// TerminalStatuses lists the statuses from which no transition is accepted.
var TerminalStatuses = []Status{StatusCompleted, StatusCancelled}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CheckTransition returns ErrConflict when the ticket is already in a terminal
// state, regardless of the requested target, and ErrValidation for an unknown target.
func CheckTransition(from, to Status) error {
	if !ValidStatuses[to] {
		return domain.Invalid("unknown maintenance status %q", to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s", domain.ErrConflict, TerminalMessage(from))
	}
	return nil
}

// TerminalMessage is the message returned when updating a finished ticket.
func TerminalMessage(s Status) string {
	return "Maintenance already " + strings.ToLower(string(s))
}

// Ticket is a maintenance request raised by a tenant against their apartment.
type Ticket struct {
	ID           string     `json:"-"`
	ExternalID   string     `json:"maintenanceId"`
	ClientID     string     `json:"-"`
	PropertyID   string     `json:"-"`
	ApartmentID  string     `json:"-"`
	TenantID     string     `json:"-"`
	Type         string     `json:"maintenanceType"`
	Details      string     `json:"maintenanceDetails"`
	Status       Status     `json:"maintenanceStatus"`
	ScheduledFor *time.Time `json:"maintenanceDate,omitempty"`
	Cost         float64    `json:"maintenanceCost,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// Read-side fields joined for display.
	PropertyName string `json:"propertyName,omitempty"`
	Floor        string `json:"floor,omitempty"`
	Door         string `json:"door,omitempty"`
	TenantName   string `json:"tenantName,omitempty"`
}

// CreateRequest is the input a tenant submits to open a ticket.
type CreateRequest struct {
	ApartmentID string     `json:"apartmentId"`
	Type        string     `json:"maintenanceType" validate:"required"`
	Details     string     `json:"maintenanceDetails" validate:"required"`
	Date        *time.Time `json:"maintenanceDate"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// UpdateStatusRequest changes a ticket's status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// Validate checks the target status is known.
func (r *UpdateStatusRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if !ValidStatuses[r.Status] {
		return domain.Invalid("unknown maintenance status %q", r.Status)
	}
	return nil
}

// CreatedMessage is the notification text sent to staff and the client owner.
func CreatedMessage(apartmentLabel, propertyName string) string {
	return fmt.Sprintf("%s, %s has a new maintenance request", apartmentLabel, propertyName)
}

// StatusMessage is the notification text sent to the tenant on a status change.
func StatusMessage(apartmentLabel, propertyName string, s Status) string {
	return fmt.Sprintf("Maintenance request for %s, %s is %s", apartmentLabel, propertyName, strings.ToLower(string(s)))
}

// Href is the client-side link for a ticket.
func Href(externalID string) string {
	return "/maintenance/" + externalID
}

// Scope narrows a ticket listing to what a caller may see. The zero value
// means every ticket of the caller's client.
type Scope struct {
	TenantID    string
	PropertyIDs []string
	// StaffOnly restricts the listing to PropertyIDs even when it is empty,
	// so staff without assignments see nothing.
	StaffOnly bool
}
