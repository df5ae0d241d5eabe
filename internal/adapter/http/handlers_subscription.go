package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
)

// RedeemCoupon handles POST /api/v1/subscription/active-by-code
func (h *Handlers) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[subscription.RedeemRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Subscriptions.Redeem(r.Context(), actor(r), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Subscription activated", "subscription": res})
}

// SubscriptionBills handles GET /api/v1/subscription/bills
func (h *Handlers) SubscriptionBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.Subscriptions.Bills(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"bills": bills})
}

// ListActivePlans handles GET /api/v1/subscription/plans
func (h *Handlers) ListActivePlans(w http.ResponseWriter, r *http.Request) {
	h.listPlans(w, r, true)
}

// ListAllPlans handles GET /api/v1/subscription/plan
func (h *Handlers) ListAllPlans(w http.ResponseWriter, r *http.Request) {
	h.listPlans(w, r, false)
}

func (h *Handlers) listPlans(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	plans, err := h.Subscriptions.Plans(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"plans": plans})
}

// CreatePlan handles POST /api/v1/subscription/plan
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	p, ok := readJSON[subscription.Plan](w, r)
	if !ok {
		return
	}
	if err := h.Subscriptions.CreatePlan(r.Context(), &p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"plan": p})
}

// UpdatePlan handles PUT /api/v1/subscription/plan/{planId}
func (h *Handlers) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	handleAction("planId", "Plan updated", h.Subscriptions.UpdatePlan)(w, r)
}

// DeletePlan handles DELETE /api/v1/subscription/plan/{planId}
func (h *Handlers) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscriptions.DeletePlan(r.Context(), urlParam(r, "planId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Plan deleted"})
}

// MakePlanPopular handles PUT /api/v1/subscription/plan/{planId}/popular
func (h *Handlers) MakePlanPopular(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscriptions.MakePopular(r.Context(), urlParam(r, "planId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Plan marked as popular"})
}

// SetPlanStatus handles PUT /api/v1/subscription/plan/{planId}/status
func (h *Handlers) SetPlanStatus(w http.ResponseWriter, r *http.Request) {
	handleAction("planId", "Plan status updated", h.Subscriptions.SetPlanStatus)(w, r)
}

// CreateCoupon handles POST /api/v1/coupons
func (h *Handlers) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[subscription.CreateCouponRequest](w, r)
	if !ok {
		return
	}
	c, err := h.Subscriptions.CreateCoupon(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"coupon": c})
}

// ListCoupons handles GET /api/v1/coupons
func (h *Handlers) ListCoupons(w http.ResponseWriter, r *http.Request) {
	p, err := h.Subscriptions.ListCoupons(r.Context(), pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, "coupons", p)
}

// DeleteCoupon handles DELETE /api/v1/coupons/{couponId}
func (h *Handlers) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscriptions.DeleteCoupon(r.Context(), urlParam(r, "couponId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Coupon deleted"})
}
