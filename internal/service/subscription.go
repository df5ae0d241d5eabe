package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/adapter/otel"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// SnapshotInvalidator drops cached user snapshots after a write.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// SubscriptionService manages coupons, plans and coupon redemption.
type SubscriptionService struct {
	store     database.SubscriptionStore
	snapshots SnapshotInvalidator
	metrics   *otel.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewSubscriptionService creates a subscription service.
func NewSubscriptionService(store database.SubscriptionStore, snapshots SnapshotInvalidator, metrics *otel.Metrics, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:     store,
		snapshots: snapshots,
		metrics:   metrics,
		log:       log.Named("subscription"),
		now:       time.Now,
	}
}

// CreateCoupon generates an active coupon with a random code.
func (s *SubscriptionService) CreateCoupon(ctx context.Context, req *subscription.CreateCouponRequest) (*subscription.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.ExpiresAt.After(s.now()) {
		return nil, domain.Invalid("expirationDate must be in the future")
	}
	c := &subscription.Coupon{
		Code:        uuid.NewString(),
		CodeType:    req.CodeType,
		Discount:    req.Discount,
		ExpiresAt:   req.ExpiresAt,
		Active:      true,
		MaxUses:     req.MaxUses,
		Description: req.Description,
	}
	if err := s.store.CreateCoupon(ctx, c); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return c, nil
}

// ListCoupons returns a page of coupons, newest first.
func (s *SubscriptionService) ListCoupons(ctx context.Context, page domain.PageRequest) (domain.Page[subscription.Coupon], error) {
	items, total, err := s.store.ListCoupons(ctx, page)
	if err != nil {
		return domain.Page[subscription.Coupon]{}, fmt.Errorf("list coupons: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// DeleteCoupon removes an unused coupon.
func (s *SubscriptionService) DeleteCoupon(ctx context.Context, couponID string) error {
	return s.store.DeleteCoupon(ctx, couponID)
}

// Redeem activates the caller's client subscription with a coupon code.
// Unknown, inactive, exhausted and expired coupons are all reported as
// subscription.ErrCouponNotValid.
func (s *SubscriptionService) Redeem(ctx context.Context, actor user.Identity, req *subscription.RedeemRequest) (*subscription.Redemption, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != user.RoleClient || actor.ClientID == "" {
		return nil, fmt.Errorf("redeem coupon: %w", domain.ErrUnauthorized)
	}
	if actor.Status == user.StatusActive {
		return nil, fmt.Errorf("redeem coupon: %w: your subscription is already active", domain.ErrConflict)
	}
	r, err := s.store.RedeemCoupon(ctx, req.Code, actor.ClientID, actor.UserID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("redeem coupon: %w", err)
	}
	s.snapshots.Invalidate(ctx, actor.UserID)
	s.metrics.CouponRedeemed(ctx)
	s.log.Info("coupon redeemed", zap.String("client_id", actor.ClientID), zap.Time("valid_until", r.ValidUntil))
	return r, nil
}

// CreatePlan adds a plan to the catalog.
func (s *SubscriptionService) CreatePlan(ctx context.Context, p *subscription.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Popular = false
	if p.Status == "" {
		p.Status = subscription.PlanActive
	}
	if err := s.store.CreatePlan(ctx, p); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// Plans lists the catalog; activeOnly hides deactivated plans.
func (s *SubscriptionService) Plans(ctx context.Context, activeOnly bool) ([]subscription.Plan, error) {
	plans, err := s.store.ListPlans(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// UpdatePlan replaces a plan's catalog fields.
func (s *SubscriptionService) UpdatePlan(ctx context.Context, planID string, p *subscription.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdatePlan(ctx, planID, p); err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

// DeletePlan removes a plan.
func (s *SubscriptionService) DeletePlan(ctx context.Context, planID string) error {
	return s.store.DeletePlan(ctx, planID)
}

// MakePopular marks the plan as the single popular plan.
func (s *SubscriptionService) MakePopular(ctx context.Context, planID string) error {
	return s.store.MakePlanPopular(ctx, planID)
}

// SetPlanStatus activates or deactivates a plan.
func (s *SubscriptionService) SetPlanStatus(ctx context.Context, planID string, req *subscription.PlanStatusRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.store.SetPlanStatus(ctx, planID, req.Status)
}

// Bills lists the caller's client subscription bills.
func (s *SubscriptionService) Bills(ctx context.Context) ([]subscription.Bill, error) {
	bills, err := s.store.ListSubscriptionBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscription bills: %w", err)
	}
	if bills == nil {
		bills = []subscription.Bill{}
	}
	return bills, nil
}
