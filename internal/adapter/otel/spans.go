package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "propertyhub"

// StartVerifySpan starts a span for session token verification.
func StartVerifySpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "token.verify")
}

// StartMaintenanceSpan starts a span for a maintenance workflow step.
func StartMaintenanceSpan(ctx context.Context, op, ticketID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "maintenance."+op,
		trace.WithAttributes(attribute.String("maintenance.id", ticketID)),
	)
}

// StartBillingSweepSpan starts a span for one scheduled rent sweep.
func StartBillingSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "billing.sweep")
}
