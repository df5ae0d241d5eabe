// Package subscription defines coupons, subscription plans and subscription bills.
package subscription

import (
	"fmt"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
)

// CodeType is the kind of discount a coupon grants.
type CodeType string

const (
	CodeFixed      CodeType = "fixed"
	CodePercentage CodeType = "percentage"
	CodeTest       CodeType = "test"
)

// RedeemableType is the only coupon type that activates a subscription on its own.
const RedeemableType = CodeTest

// DaysPerDiscountUnit converts a test coupon's discount into subscription days.
const DaysPerDiscountUnit = 30

// Coupon grants a subscription or a discount. Uses never exceed MaxUses.
type Coupon struct {
	ID          string    `json:"-"`
	ExternalID  string    `json:"couponId"`
	Code        string    `json:"code"`
	CodeType    CodeType  `json:"codeType"`
	Discount    float64   `json:"discount"`
	ExpiresAt   time.Time `json:"expirationDate"`
	Active      bool      `json:"active"`
	MaxUses     int       `json:"maxUses"`
	Uses        int       `json:"uses"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ErrCouponNotValid is returned for unknown, inactive, exhausted, expired or
// non-redeemable coupons.
var ErrCouponNotValid = fmt.Errorf("%w: your coupon is not valid", domain.ErrNotFound)

// CheckRedeemable reports whether the coupon can activate a subscription at now.
func (c *Coupon) CheckRedeemable(now time.Time) error {
	if c.CodeType != RedeemableType || !c.Active || c.Uses >= c.MaxUses || !c.ExpiresAt.After(now) {
		return ErrCouponNotValid
	}
	return nil
}

// ValidUntil is the subscription end granted when redeemed at now.
func (c *Coupon) ValidUntil(now time.Time) time.Time {
	return now.Add(time.Duration(c.Discount*DaysPerDiscountUnit) * 24 * time.Hour)
}

// CreateCouponRequest is the input for generating a coupon.
type CreateCouponRequest struct {
	CodeType    CodeType  `json:"codeType" validate:"required,oneof=fixed percentage test"`
	Discount    float64   `json:"discount" validate:"gt=0"`
	ExpiresAt   time.Time `json:"expirationDate" validate:"required"`
	MaxUses     int       `json:"maxUses" validate:"gt=0"`
	Description string    `json:"description"`
}

// Validate checks required fields.
func (r *CreateCouponRequest) Validate() error {
	return domain.Validate(r)
}

// RedeemRequest is the body of a coupon redemption.
type RedeemRequest struct {
	Code string `json:"code" validate:"required"`
}

// Validate checks required fields.
func (r *RedeemRequest) Validate() error {
	return domain.Validate(r)
}

// Redemption is the outcome of a successful coupon redemption.
type Redemption struct {
	Plan       string    `json:"subscriptionPlan"`
	ValidUntil time.Time `json:"subscriptionValidUntil"`
}

// PlanStatus toggles plan visibility.
type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanInactive PlanStatus = "inactive"
)

// Plan is a purchasable subscription tier.
type Plan struct {
	ID           string     `json:"-" yaml:"-"`
	ExternalID   string     `json:"planId" yaml:"-"`
	Name         string     `json:"name" yaml:"name" validate:"required"`
	Description  string     `json:"description,omitempty" yaml:"description"`
	Price        float64    `json:"price" yaml:"price" validate:"gte=0"`
	DurationDays int        `json:"duration" yaml:"duration" validate:"gt=0"`
	Features     []string   `json:"features" yaml:"features"`
	Status       PlanStatus `json:"status" yaml:"status"`
	Popular      bool       `json:"isPopular" yaml:"popular"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"-"`
}

// Validate checks required fields.
func (p *Plan) Validate() error {
	return domain.Validate(p)
}

// BillStatus is the payment state of a subscription bill.
type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
)

// Bill is a charge for a client's subscription.
type Bill struct {
	ID          string     `json:"-"`
	ExternalID  string     `json:"billId"`
	ClientID    string     `json:"-"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Status      BillStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PlanStatusRequest activates or deactivates a plan.
type PlanStatusRequest struct {
	Status PlanStatus `json:"status" validate:"required,oneof=active inactive"`
}

// Validate checks the status value.
func (r *PlanStatusRequest) Validate() error {
	return domain.Validate(r)
}
