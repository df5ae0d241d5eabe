// Package billing defines bills and the half-month lease cycle they are keyed on.
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// Type distinguishes rent from deposit bills.
type Type string

const (
	TypeRent    Type = "rent"
	TypeDeposit Type = "deposit"
)

// Period is the half of the month a lease cycle falls in.
type Period string

const (
	FirstHalf  Period = "first-half"
	SecondHalf Period = "second-half"
)

// Status is the payment state of a bill.
type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
)

// Cycle is the (month, year, period) part of a bill's uniqueness key.
type Cycle struct {
	Month  string `json:"month"`
	Year   int    `json:"year"`
	Period Period `json:"period"`
}

// CycleFor derives the billing cycle from a lease start date: days 1-15 fall in
// the first half, the rest in the second.
func CycleFor(leaseStart time.Time) Cycle {
	p := SecondHalf
	if leaseStart.Day() <= 15 {
		p = FirstHalf
	}
	return Cycle{
		Month:  leaseStart.Month().String(),
		Year:   leaseStart.Year(),
		Period: p,
	}
}

// CycleAt is the cycle of a lease starting at leaseStart that falls in the
// month of at. The period stays the one fixed by the lease start day.
func CycleAt(leaseStart, at time.Time) Cycle {
	c := CycleFor(leaseStart)
	c.Month, c.Year = at.Month().String(), at.Year()
	return c
}

// Half returns "first" or "second".
func (c Cycle) Half() string {
	if c.Period == FirstHalf {
		return "first"
	}
	return "second"
}

// RentDescription is the human-readable text of a rent bill.
func RentDescription(c Cycle) string {
	return fmt.Sprintf("Monthly rent for %s half of %s, %d", c.Half(), c.Month, c.Year)
}

// DepositDescription is the human-readable text of a deposit bill.
func DepositDescription(floor, door, propertyName string) string {
	return fmt.Sprintf("Security deposit for %s-%s, %s", floor, strings.ToUpper(door), propertyName)
}

// Bill is a charge raised against an apartment's tenant. At most one bill
// exists per (apartment, month, year, period, type).
type Bill struct {
	ID          string    `json:"-"`
	ExternalID  string    `json:"billId"`
	ClientID    string    `json:"-"`
	PropertyID  string    `json:"-"`
	ApartmentID string    `json:"-"`
	TenantID    string    `json:"-"`
	Type        Type      `json:"type"`
	Cycle                 // month, year, period
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`

	// Read-side fields joined for display.
	ApartmentExternalID string `json:"apartmentId,omitempty"`
	PropertyName        string `json:"propertyName,omitempty"`
	TenantName          string `json:"tenantName,omitempty"`
}

// Outcome describes what a generation request did.
type Outcome string

const (
	OutcomeGenerated        Outcome = "generated"
	OutcomeAlreadyGenerated Outcome = "already_generated"
	OutcomeNotOccupied      Outcome = "not_occupied"
)

// GenerateResult is returned by bill generation. Only OutcomeGenerated
// carries a new bill; the other outcomes are benign no-ops.
type GenerateResult struct {
	Outcome Outcome `json:"outcome"`
	Bill    *Bill   `json:"bill,omitempty"`
}

// Generated reports whether a new bill was written.
func (r GenerateResult) Generated() bool {
	return r.Outcome == OutcomeGenerated
}

// Message is the user-facing text for the outcome.
func (r GenerateResult) Message() string {
	switch r.Outcome {
	case OutcomeGenerated:
		return "Bill generated successfully"
	case OutcomeAlreadyGenerated:
		return "Bill already generated"
	case OutcomeNotOccupied:
		return "Apartment is not occupied"
	}
	return ""
}

// UpdateStatusRequest marks a bill paid or unpaid.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=paid unpaid"`
}

// Validate checks the status value.
func (r *UpdateStatusRequest) Validate() error {
	return domain.Validate(r)
}

// Filter narrows a bill listing. The zero value lists every bill of the client.
type Filter struct {
	TenantID string
	Status   Status
}
