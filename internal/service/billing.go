package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/adapter/otel"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/billing"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/logger"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// SweepReport summarizes one scheduled rent sweep.
type SweepReport struct {
	Generated int `json:"generated"`
	Existing  int `json:"existing"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// BillingService generates rent and deposit bills. Both paths are guarded
// by the bill cycle key, so generating twice for one cycle is a no-op.
type BillingService struct {
	store   database.Store
	metrics *otel.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewBillingService creates a billing service.
func NewBillingService(store database.Store, metrics *otel.Metrics, log *zap.Logger) *BillingService {
	return &BillingService{store: store, metrics: metrics, log: log.Named("billing"), now: time.Now}
}

// GenerateRent writes the rent bill of the apartment's lease start cycle.
func (s *BillingService) GenerateRent(ctx context.Context, apartmentID string) (billing.GenerateResult, error) {
	return s.generateFor(ctx, apartmentID, billing.TypeRent)
}

// GenerateDeposit writes the deposit bill of the apartment's lease start cycle.
func (s *BillingService) GenerateDeposit(ctx context.Context, apartmentID string) (billing.GenerateResult, error) {
	return s.generateFor(ctx, apartmentID, billing.TypeDeposit)
}

func (s *BillingService) generateFor(ctx context.Context, apartmentID string, typ billing.Type) (billing.GenerateResult, error) {
	apt, err := s.store.GetApartmentByExternalID(ctx, apartmentID)
	if err != nil {
		return billing.GenerateResult{}, fmt.Errorf("generate %s bill: %w", typ, err)
	}
	if !apt.Occupied() {
		return billing.GenerateResult{Outcome: billing.OutcomeNotOccupied}, nil
	}
	if apt.Lease.StartDate == nil {
		return billing.GenerateResult{}, domain.Invalid("apartment has no lease start date")
	}
	return s.generate(ctx, apt, typ, billing.CycleFor(*apt.Lease.StartDate))
}

func (s *BillingService) generate(ctx context.Context, apt *property.Apartment, typ billing.Type, cycle billing.Cycle) (billing.GenerateResult, error) {
	if !apt.Occupied() {
		return billing.GenerateResult{Outcome: billing.OutcomeNotOccupied}, nil
	}
	b := &billing.Bill{
		ClientID:            apt.ClientID,
		PropertyID:          apt.PropertyID,
		ApartmentID:         apt.ID,
		TenantID:            apt.TenantID,
		Type:                typ,
		Cycle:               cycle,
		Date:                s.now().UTC(),
		ApartmentExternalID: apt.ExternalID,
		PropertyName:        apt.PropertyName,
	}
	switch typ {
	case billing.TypeRent:
		b.Amount, b.Description = apt.Lease.Rent, billing.RentDescription(cycle)
	case billing.TypeDeposit:
		b.Amount, b.Description = apt.Lease.Deposit, billing.DepositDescription(apt.Floor, apt.Door, apt.PropertyName)
	default:
		return billing.GenerateResult{}, domain.Invalid("unknown bill type %q", typ)
	}

	created, err := s.store.InsertBillIfAbsent(ctx, b)
	if err != nil {
		return billing.GenerateResult{}, fmt.Errorf("generate %s bill: %w", typ, err)
	}
	if !created {
		return billing.GenerateResult{Outcome: billing.OutcomeAlreadyGenerated}, nil
	}
	s.metrics.BillGenerated(ctx, string(typ))
	return billing.GenerateResult{Outcome: billing.OutcomeGenerated, Bill: b}, nil
}

// SweepRent generates the rent bills due at the given time across all
// clients. A lease keeps the half of the month its start day falls in, so a
// sweep in the first half bills first-half leases and vice versa.
func (s *BillingService) SweepRent(ctx context.Context, at time.Time) (SweepReport, error) {
	ctx, span := otel.StartBillingSweepSpan(ctx)
	defer span.End()
	log := logger.FromContext(ctx, s.log)

	apts, err := s.store.ListOccupiedApartments(ctx)
	if err != nil {
		span.RecordError(err)
		return SweepReport{}, fmt.Errorf("sweep rent: %w", err)
	}

	var report SweepReport
	half := billing.CycleFor(at).Period
	for i := range apts {
		apt := &apts[i]
		start := apt.Lease.StartDate
		if start == nil || start.After(at) || billing.CycleFor(*start).Period != half {
			report.Skipped++
			continue
		}
		if end := apt.Lease.EndDate; end != nil && end.Before(at) {
			report.Skipped++
			continue
		}
		res, err := s.generate(user.ContextWithClient(ctx, apt.ClientID), apt, billing.TypeRent, billing.CycleAt(*start, at))
		switch {
		case err != nil:
			report.Failed++
			log.Error("sweep rent bill", zap.String("apartment_id", apt.ExternalID), zap.Error(err))
		case res.Generated():
			report.Generated++
		case res.Outcome == billing.OutcomeAlreadyGenerated:
			report.Existing++
		default:
			report.Skipped++
		}
	}
	log.Info("rent sweep finished",
		zap.Int("generated", report.Generated), zap.Int("existing", report.Existing),
		zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return report, nil
}

// MyBills lists the caller's own bills, newest first.
func (s *BillingService) MyBills(ctx context.Context, actor user.Identity, page domain.PageRequest) (domain.Page[billing.Bill], error) {
	return s.list(ctx, billing.Filter{TenantID: actor.UserID}, page)
}

// List lists the client's bills, optionally narrowed to one status.
func (s *BillingService) List(ctx context.Context, status billing.Status, page domain.PageRequest) (domain.Page[billing.Bill], error) {
	if status != "" && status != billing.StatusPaid && status != billing.StatusUnpaid {
		return domain.Page[billing.Bill]{}, domain.Invalid("unknown bill status %q", status)
	}
	return s.list(ctx, billing.Filter{Status: status}, page)
}

func (s *BillingService) list(ctx context.Context, f billing.Filter, page domain.PageRequest) (domain.Page[billing.Bill], error) {
	items, total, err := s.store.ListBills(ctx, f, page)
	if err != nil {
		return domain.Page[billing.Bill]{}, fmt.Errorf("list bills: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// UpdateStatus marks a bill paid or unpaid.
func (s *BillingService) UpdateStatus(ctx context.Context, billID string, req *billing.UpdateStatusRequest) (*billing.Bill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := s.store.UpdateBillStatus(ctx, billID, req.Status)
	if err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}
	return b, nil
}
