package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of all checkflow instruments
const MeterName = "github.com/simaogato/checkflow-backend"

const (
	ChecksIssuedMetric   = "checkflow.checks.issued"
	ChecksDecidedMetric  = "checkflow.checks.decided"
	LedgerFailureMetric  = "checkflow.ledger.failures"
	PendingChecksMetric  = "checkflow.checks.pending"
	DeliveryFailedMetric = "checkflow.delivery.failures"
)

// Metrics holds the instruments recorded by the check lifecycle.
// A nil *Metrics records nothing.
type Metrics struct {
	issued         metric.Int64Counter
	decided        metric.Int64Counter
	ledgerFailures metric.Int64Counter
	deliveryFailed metric.Int64Counter
	pending        metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	issued, err := meter.Int64Counter(ChecksIssuedMetric,
		metric.WithDescription("Checks appended to the ledger and sent to a recipient"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", ChecksIssuedMetric, err)
	}

	decided, err := meter.Int64Counter(ChecksDecidedMetric,
		metric.WithDescription("Checks that reached a terminal status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", ChecksDecidedMetric, err)
	}

	ledgerFailures, err := meter.Int64Counter(LedgerFailureMetric,
		metric.WithDescription("Failed ledger operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", LedgerFailureMetric, err)
	}

	deliveryFailed, err := meter.Int64Counter(DeliveryFailedMetric,
		metric.WithDescription("Decision prompts that could not be delivered to the recipient"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", DeliveryFailedMetric, err)
	}

	pending, err := meter.Int64UpDownCounter(PendingChecksMetric,
		metric.WithDescription("Checks waiting for a recipient decision"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", PendingChecksMetric, err)
	}

	return &Metrics{
		issued:         issued,
		decided:        decided,
		ledgerFailures: ledgerFailures,
		deliveryFailed: deliveryFailed,
		pending:        pending,
	}, nil
}

// NewNoopMetrics returns instruments that discard every measurement
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// CheckIssued records a check entering the pending registry
func (m *Metrics) CheckIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1)
	m.pending.Add(ctx, 1)
}

// CheckDecided records a terminal transition and whether the ledger followed
func (m *Metrics) CheckDecided(ctx context.Context, status string, ledgerSynced bool) {
	if m == nil {
		return
	}
	m.decided.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("ledger_synced", ledgerSynced),
	))
	m.pending.Add(ctx, -1)
}

// LedgerFailure records a failed ledger operation ("append" or "update")
func (m *Metrics) LedgerFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ledgerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// DeliveryFailed records a decision prompt the recipient never received
func (m *Metrics) DeliveryFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.deliveryFailed.Add(ctx, 1)
}
