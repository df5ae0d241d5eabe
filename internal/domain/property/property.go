// Package property defines properties, apartments and lease terms.
package property

import (
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// Property is a building owned by a client.
type Property struct {
	ID           string    `json:"-"`
	ExternalID   string    `json:"propertyId"`
	ClientID     string    `json:"-"`
	Name         string    `json:"name"`
	PropertyType string    `json:"propertyType,omitempty"`
	Address      string    `json:"address,omitempty"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Lease holds the rental terms of an occupied apartment.
type Lease struct {
	StartDate *time.Time `json:"leaseStartDate,omitempty"`
	EndDate   *time.Time `json:"leaseEndDate,omitempty"`
	Rent      float64    `json:"rent"`
	Deposit   float64    `json:"deposit"`
	LateFee   float64    `json:"lateFee"`
}

// Apartment is a rentable unit within a property. At most one tenant
// occupies an apartment at a time.
type Apartment struct {
	ID           string    `json:"-"`
	ExternalID   string    `json:"apartmentId"`
	ClientID     string    `json:"-"`
	PropertyID   string    `json:"-"`
	PropertyName string    `json:"propertyName,omitempty"`
	Floor        string    `json:"floor"`
	Door         string    `json:"door"`
	Size         float64   `json:"size,omitempty"`
	Rooms        int       `json:"rooms,omitempty"`
	TenantID     string    `json:"-"`
	Lease        Lease     `json:"lease"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Occupied reports whether a tenant currently lives in the apartment.
func (a *Apartment) Occupied() bool {
	return a.TenantID != ""
}

// Label returns the "<floor>-<door>" form used in notifications.
func (a *Apartment) Label() string {
	return a.Floor + "-" + a.Door
}

// CreatePropertyRequest is the input for adding a property.
type CreatePropertyRequest struct {
	Name         string `json:"name" validate:"required"`
	PropertyType string `json:"propertyType"`
	Address      string `json:"address"`
}

// Validate checks required fields.
func (r *CreatePropertyRequest) Validate() error {
	return domain.Validate(r)
}

// CreateApartmentRequest is the input for adding an apartment to a property.
type CreateApartmentRequest struct {
	Floor string  `json:"floor" validate:"required"`
	Door  string  `json:"door" validate:"required"`
	Size  float64 `json:"size"`
	Rooms int     `json:"rooms"`
}

// Validate checks required fields.
func (r *CreateApartmentRequest) Validate() error {
	return domain.Validate(r)
}

// AssignHomeRequest moves a tenant into an apartment with new lease terms.
type AssignHomeRequest struct {
	ApartmentID    string     `json:"apartmentId" validate:"required"`
	LeaseStartDate *time.Time `json:"leaseStartDate" validate:"required"`
	LeaseEndDate   *time.Time `json:"leaseEndDate"`
	Rent           float64    `json:"rent" validate:"gte=0"`
	Deposit        float64    `json:"deposit" validate:"gte=0"`
	LateFee        float64    `json:"lateFee" validate:"gte=0"`
}

// Validate checks required fields and that the lease does not end before it starts.
func (r *AssignHomeRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.LeaseEndDate != nil && r.LeaseEndDate.Before(*r.LeaseStartDate) {
		return domain.Invalid("leaseEndDate must not be before leaseStartDate")
	}
	return nil
}

// Lease converts the request into lease terms.
func (r *AssignHomeRequest) Lease() Lease {
	return Lease{
		StartDate: r.LeaseStartDate,
		EndDate:   r.LeaseEndDate,
		Rent:      r.Rent,
		Deposit:   r.Deposit,
		LateFee:   r.LateFee,
	}
}
