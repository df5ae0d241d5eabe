package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// --- Coupons ---

const couponColumns = `id, external_id, code, code_type, discount, expires_at, active, max_uses, uses,
	description, COALESCE(user_id::text, ''), created_at`

func scanCoupon(row scannable) (subscription.Coupon, error) {
	var c subscription.Coupon
	err := row.Scan(&c.ID, &c.ExternalID, &c.Code, &c.CodeType, &c.Discount, &c.ExpiresAt, &c.Active,
		&c.MaxUses, &c.Uses, &c.Description, &c.UserID, &c.CreatedAt)
	return c, err
}

func (s *Store) CreateCoupon(ctx context.Context, c *subscription.Coupon) error {
	assignIDs(&c.ID, &c.ExternalID)
	c.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO coupons (id, external_id, code, code_type, discount, expires_at, active, max_uses, uses, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.ExternalID, c.Code, c.CodeType, c.Discount, c.ExpiresAt, c.Active, c.MaxUses, c.Uses,
		c.Description, c.CreatedAt)
	if err != nil {
		return conflictWrap(err, "create coupon")
	}
	return nil
}

func (s *Store) ListCoupons(ctx context.Context, page domain.PageRequest) ([]subscription.Coupon, int, error) {
	total, err := s.count(ctx, `SELECT COUNT(*) FROM coupons`)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	coupons, err := collect(rows, scanCoupon)
	if err != nil {
		return nil, 0, fmt.Errorf("scan coupon: %w", err)
	}
	return coupons, total, nil
}

func (s *Store) DeleteCoupon(ctx context.Context, externalID string) error {
	var uses int
	err := s.pool.QueryRow(ctx, `
		WITH target AS (SELECT id, uses FROM coupons WHERE external_id = $1),
		     del AS (DELETE FROM coupons c USING target t WHERE c.id = t.id AND t.uses = 0 RETURNING c.id)
		SELECT uses FROM target`, externalID,
	).Scan(&uses)
	if err != nil {
		return notFoundWrap(err, "delete coupon %s", externalID)
	}
	if uses > 0 {
		return fmt.Errorf("delete coupon %s: %w: coupon has already been used", externalID, domain.ErrConflict)
	}
	return nil
}

// RedeemCoupon locks the coupon row so two concurrent redemptions of a
// single-use coupon cannot both pass the uses check.
func (s *Store) RedeemCoupon(ctx context.Context, code, clientID, userID string, now time.Time) (*subscription.Redemption, error) {
	var out *subscription.Redemption
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := scanCoupon(tx.QueryRow(ctx,
			`SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code))
		if errors.Is(err, pgx.ErrNoRows) {
			return subscription.ErrCouponNotValid
		}
		if err != nil {
			return fmt.Errorf("load coupon: %w", err)
		}
		if err := c.CheckRedeemable(now); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE coupons SET uses = uses + 1, user_id = $2, active = FALSE WHERE id = $1`,
			c.ID, userID); err != nil {
			return fmt.Errorf("consume coupon: %w", err)
		}

		out = &subscription.Redemption{Plan: string(c.CodeType), ValidUntil: c.ValidUntil(now)}
		tag, err := tx.Exec(ctx, `
			UPDATE clients SET subscribed = TRUE, subscription_plan = $2, subscription_valid_until = $3
			WHERE id = $1`, clientID, out.Plan, out.ValidUntil)
		if err := execExpectOne(tag, err, "subscribe client %s", clientID); err != nil {
			return err
		}
		tag, err = tx.Exec(ctx,
			`UPDATE users SET status = $2, updated_at = now() WHERE id = $1 AND client_id = $3`,
			userID, user.StatusActive, clientID)
		if err := execExpectOne(tag, err, "activate owner %s", userID); err != nil {
			return err
		}

		var billID, billExt string
		assignIDs(&billID, &billExt)
		_, err = tx.Exec(ctx, `
			INSERT INTO subscription_bills (id, external_id, client_id, description, amount, status, created_at)
			VALUES ($1, $2, $3, $4, 0, $5, $6)`,
			billID, billExt, clientID, fmt.Sprintf("Coupon %s redeemed for %s plan", c.Code, out.Plan),
			subscription.BillPaid, now)
		if err != nil {
			return fmt.Errorf("record subscription bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Plans ---

const planColumns = `id, external_id, name, description, price, duration_days, features, status, popular, created_at`

func scanPlan(row scannable) (subscription.Plan, error) {
	var p subscription.Plan
	err := row.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Description, &p.Price, &p.DurationDays,
		&p.Features, &p.Status, &p.Popular, &p.CreatedAt)
	return p, err
}

func (s *Store) CreatePlan(ctx context.Context, p *subscription.Plan) error {
	assignIDs(&p.ID, &p.ExternalID)
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = subscription.PlanActive
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscription_plans (id, external_id, name, description, price, duration_days, features, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.ExternalID, p.Name, p.Description, p.Price, p.DurationDays, pgTextArray(p.Features), p.Status, p.CreatedAt)
	if err != nil {
		return conflictWrap(err, "create plan %s", p.Name)
	}
	return nil
}

// UpsertPlanByName inserts the plan or refreshes its catalog fields. Status
// and the popular flag are left alone on existing rows so operator changes
// survive a reseed.
func (s *Store) UpsertPlanByName(ctx context.Context, p *subscription.Plan) error {
	assignIDs(&p.ID, &p.ExternalID)
	if p.Status == "" {
		p.Status = subscription.PlanActive
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscription_plans (id, external_id, name, description, price, duration_days, features, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price,
		    duration_days = EXCLUDED.duration_days, features = EXCLUDED.features
		RETURNING id, external_id, created_at`,
		p.ID, p.ExternalID, p.Name, p.Description, p.Price, p.DurationDays, pgTextArray(p.Features), p.Status,
	).Scan(&p.ID, &p.ExternalID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", p.Name, err)
	}
	return nil
}

func (s *Store) ListPlans(ctx context.Context, activeOnly bool) ([]subscription.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+planColumns+` FROM subscription_plans
		 WHERE NOT $1::boolean OR status = 'active'
		 ORDER BY price, name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans, err := collect(rows, scanPlan)
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return orEmpty(plans), nil
}

func (s *Store) UpdatePlan(ctx context.Context, externalID string, p *subscription.Plan) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE subscription_plans
		SET name = $2, description = $3, price = $4, duration_days = $5, features = $6
		WHERE external_id = $1
		RETURNING `+planColumns,
		externalID, p.Name, p.Description, p.Price, p.DurationDays, pgTextArray(p.Features),
	).Scan(&p.ID, &p.ExternalID, &p.Name, &p.Description, &p.Price, &p.DurationDays,
		&p.Features, &p.Status, &p.Popular, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundWrap(err, "update plan %s", externalID)
		}
		return conflictWrap(err, "update plan %s", externalID)
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscription_plans WHERE external_id = $1`, externalID)
	return execExpectOne(tag, err, "delete plan %s", externalID)
}

// MakePlanPopular clears the previous popular plan before setting the new
// one; uq_subscription_plans_popular rejects two popular rows.
func (s *Store) MakePlanPopular(ctx context.Context, externalID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx,
			`SELECT id FROM subscription_plans WHERE external_id = $1 FOR UPDATE`, externalID).Scan(&id)
		if err != nil {
			return notFoundWrap(err, "make plan popular %s", externalID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE subscription_plans SET popular = FALSE WHERE popular AND id <> $1`, id); err != nil {
			return fmt.Errorf("clear popular plan: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE subscription_plans SET popular = TRUE WHERE id = $1`, id); err != nil {
			return conflictWrap(err, "make plan popular %s", externalID)
		}
		return nil
	})
}

func (s *Store) SetPlanStatus(ctx context.Context, externalID string, status subscription.PlanStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscription_plans SET status = $2 WHERE external_id = $1`, externalID, status)
	return execExpectOne(tag, err, "set plan status %s", externalID)
}

// --- Subscription bills ---

func (s *Store) ListSubscriptionBills(ctx context.Context) ([]subscription.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_id, client_id, description, amount, status, created_at
		FROM subscription_bills WHERE client_id = $1 ORDER BY created_at DESC`, clientFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list subscription bills: %w", err)
	}
	bills, err := collect(rows, func(row scannable) (subscription.Bill, error) {
		var b subscription.Bill
		err := row.Scan(&b.ID, &b.ExternalID, &b.ClientID, &b.Description, &b.Amount, &b.Status, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan subscription bill: %w", err)
	}
	return orEmpty(bills), nil
}
