package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "propertyhub"

// Metrics holds the PropertyHub metric instruments. A nil *Metrics is valid
// and records nothing, which keeps services usable in tests.
type Metrics struct {
	TokensIssued    metric.Int64Counter
	TokensRevoked   metric.Int64Counter
	TicketsCreated  metric.Int64Counter
	BillsGenerated  metric.Int64Counter
	CouponsRedeemed metric.Int64Counter
	VerifyDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TokensIssued, err = meter.Int64Counter("propertyhub.tokens.issued",
		metric.WithDescription("Session tokens issued"))
	if err != nil {
		return nil, err
	}

	m.TokensRevoked, err = meter.Int64Counter("propertyhub.tokens.revoked",
		metric.WithDescription("Session tokens revoked or evicted"))
	if err != nil {
		return nil, err
	}

	m.TicketsCreated, err = meter.Int64Counter("propertyhub.maintenance.created",
		metric.WithDescription("Maintenance tickets created"))
	if err != nil {
		return nil, err
	}

	m.BillsGenerated, err = meter.Int64Counter("propertyhub.bills.generated",
		metric.WithDescription("Bills written, by type"))
	if err != nil {
		return nil, err
	}

	m.CouponsRedeemed, err = meter.Int64Counter("propertyhub.coupons.redeemed",
		metric.WithDescription("Coupons redeemed"))
	if err != nil {
		return nil, err
	}

	m.VerifyDuration, err = meter.Float64Histogram("propertyhub.tokens.verify_seconds",
		metric.WithDescription("Token verification latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) TokenIssued(ctx context.Context) {
	if m != nil {
		m.TokensIssued.Add(ctx, 1)
	}
}

func (m *Metrics) TokenRevoked(ctx context.Context, n int) {
	if m != nil && n > 0 {
		m.TokensRevoked.Add(ctx, int64(n))
	}
}

func (m *Metrics) TicketCreated(ctx context.Context) {
	if m != nil {
		m.TicketsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) BillGenerated(ctx context.Context, billType string) {
	if m != nil {
		m.BillsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("bill.type", billType)))
	}
}

func (m *Metrics) CouponRedeemed(ctx context.Context) {
	if m != nil {
		m.CouponsRedeemed.Add(ctx, 1)
	}
}

func (m *Metrics) ObserveVerify(ctx context.Context, seconds float64, ok bool) {
	if m != nil {
		m.VerifyDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("ok", ok)))
	}
}
