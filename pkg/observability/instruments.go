package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prperemyshlev/platform-services"

// Operation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Instruments holds the domain counters. A nil *Instruments records nothing.
type Instruments struct {
	authOperations otelmetric.Int64Counter
	events         otelmetric.Int64Counter
	notifications  otelmetric.Int64Counter
}

// NewInstruments creates the domain counters on provider, or on the global
// provider when provider is nil.
func NewInstruments(provider otelmetric.MeterProvider) (*Instruments, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	authOperations, err := meter.Int64Counter("auth.operations",
		otelmetric.WithDescription("Identity operations by name and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth.operations counter: %w", err)
	}

	events, err := meter.Int64Counter("events.dispatched",
		otelmetric.WithDescription("Dispatched event envelopes by type and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create events.dispatched counter: %w", err)
	}

	notifications, err := meter.Int64Counter("notifications.sent",
		otelmetric.WithDescription("Notifications handed to a sink by channel and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications.sent counter: %w", err)
	}

	return &Instruments{
		authOperations: authOperations,
		events:         events,
		notifications:  notifications,
	}, nil
}

// AuthOperation counts one identity operation
func (i *Instruments) AuthOperation(ctx context.Context, op, outcome string) {
	if i == nil {
		return
	}
	i.authOperations.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// EventDispatched counts one dispatched envelope
func (i *Instruments) EventDispatched(ctx context.Context, eventType, status string) {
	if i == nil {
		return
	}
	i.events.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("type", eventType),
		attribute.String("status", status),
	))
}

// NotificationSent counts one notification
func (i *Instruments) NotificationSent(ctx context.Context, channel, outcome string) {
	if i == nil {
		return
	}
	i.notifications.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}
