// Package user defines the identity model: users, roles, permissions and the
// resolved request identity used by the authorization pipeline.
package user

import (
	"strings"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// MaxActiveTokens caps the number of concurrently valid session tokens per user.
// Issuing a token beyond the cap evicts the oldest one.
const MaxActiveTokens = 5

// User represents a registered account.
type User struct {
	ID           string        `json:"-"`
	ExternalID   string        `json:"userId"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone,omitempty"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Status       Status        `json:"status"`
	Permissions  PermissionSet `json:"permissions"`
	ClientID     string        `json:"-"`
	PropertyIDs  []string      `json:"-"`
	ApartmentIDs []string      `json:"-"`
	Tokens       []string      `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the input for self-service client registration.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"` //nolint:gosec // request field
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName"`
}

// Validate checks required fields.
func (r *RegisterRequest) Validate() error {
	return domain.Validate(r)
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"` //nolint:gosec // request field
}

// Validate checks required fields.
func (r *LoginRequest) Validate() error {
	return domain.Validate(r)
}

// UpdatePasswordRequest changes the caller's own password.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// Validate checks required fields.
func (r *UpdatePasswordRequest) Validate() error {
	return domain.Validate(r)
}

// CreateStaffRequest is used by a client to add a manager, maintainer or janitor.
type CreateStaffRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"` //nolint:gosec // request field
	Phone       string   `json:"phone"`
	Role        Role     `json:"role" validate:"required,oneof=MANAGER MAINTAINER JANITOR"`
	Permissions []string `json:"permissions"`
	Properties  []string `json:"properties"`
}

// Validate checks required fields and the permission names.
func (r *CreateStaffRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if _, err := ParsePermissions(r.Permissions); err != nil {
		return domain.Invalid("%v", err)
	}
	return nil
}

// CreateTenantRequest is used by a client to add a renter account.
type CreateTenantRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"` //nolint:gosec // request field
	Phone    string `json:"phone"`
}

// Validate checks required fields.
func (r *CreateTenantRequest) Validate() error {
	return domain.Validate(r)
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token string `json:"token"` //nolint:gosec // response field
	User  User   `json:"user"`
}

// SetStatusRequest activates or deactivates a staff member or tenant.
type SetStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

// Validate checks the status value.
func (r *SetStatusRequest) Validate() error {
	return domain.Validate(r)
}

// SetPermissionsRequest replaces a staff member's permission set.
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// Validate checks the permission names.
func (r *SetPermissionsRequest) Validate() error {
	if _, err := ParsePermissions(r.Permissions); err != nil {
		return domain.Invalid("%v", err)
	}
	return nil
}

// SetPropertiesRequest replaces a staff member's property assignments.
// Properties are external ids.
type SetPropertiesRequest struct {
	Properties []string `json:"properties"`
}
