// Package observability provides a metrics extension for fundraise that
// records event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/plugin"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionUpdated = (*MetricsExtension)(nil)
	_ plugin.OnCapacityRejected    = (*MetricsExtension)(nil)
	_ plugin.OnProjectChanged      = (*MetricsExtension)(nil)
	_ plugin.OnProjectFunded       = (*MetricsExtension)(nil)
	_ plugin.OnSharesRecalculated  = (*MetricsExtension)(nil)
	_ plugin.OnLedgerDrift         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records funding lifecycle metrics.
// Register it as an engine plugin to track subscription activity.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated Counter
	SubscriptionUpdated Counter
	SubscriptionAmount  Histogram
	CapacityRejected    Counter

	// Project metrics
	ProjectChanged     Counter
	ProjectFunded      Counter
	SharesRecalculated Counter

	// Consistency metrics
	LedgerDrift      Counter
	LedgerDriftCents Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		SubscriptionCreated: factory.Counter("fundraise.subscription.created"),
		SubscriptionUpdated: factory.Counter("fundraise.subscription.updated"),
		SubscriptionAmount:  factory.Histogram("fundraise.subscription.amount"),
		CapacityRejected:    factory.Counter("fundraise.subscription.rejected"),

		ProjectChanged:     factory.Counter("fundraise.project.changed"),
		ProjectFunded:      factory.Counter("fundraise.project.funded"),
		SharesRecalculated: factory.Counter("fundraise.shares.recalculated"),

		LedgerDrift:      factory.Counter("fundraise.ledger.drift"),
		LedgerDriftCents: factory.Histogram("fundraise.ledger.drift.cents"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, sub *subscription.Subscription, _ *project.Project) error {
	m.SubscriptionCreated.Inc()
	m.SubscriptionAmount.Observe(sub.Amount.Decimal().InexactFloat64())
	return nil
}

// OnSubscriptionUpdated implements plugin.OnSubscriptionUpdated.
func (m *MetricsExtension) OnSubscriptionUpdated(_ context.Context, sub *subscription.Subscription, _ types.Money) error {
	m.SubscriptionUpdated.Inc()
	m.SubscriptionAmount.Observe(sub.Amount.Decimal().InexactFloat64())
	return nil
}

// OnCapacityRejected implements plugin.OnCapacityRejected.
func (m *MetricsExtension) OnCapacityRejected(_ context.Context, _ id.ProjectID, _ types.Money, _ error) error {
	m.CapacityRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Project hooks
// ──────────────────────────────────────────────────

// OnProjectChanged implements plugin.OnProjectChanged.
func (m *MetricsExtension) OnProjectChanged(_ context.Context, _ id.ProjectID, _ plugin.ChangeKind) error {
	m.ProjectChanged.Inc()
	return nil
}

// OnProjectFunded implements plugin.OnProjectFunded.
func (m *MetricsExtension) OnProjectFunded(_ context.Context, _ *project.Project) error {
	m.ProjectFunded.Inc()
	return nil
}

// OnSharesRecalculated implements plugin.OnSharesRecalculated.
func (m *MetricsExtension) OnSharesRecalculated(_ context.Context, _ id.ProjectID, changed int) error {
	m.SharesRecalculated.Add(float64(changed))
	return nil
}

// OnLedgerDrift implements plugin.OnLedgerDrift.
func (m *MetricsExtension) OnLedgerDrift(_ context.Context, _ id.ProjectID, cached, actual types.Money) error {
	m.LedgerDrift.Inc()
	diff := cached.Subtract(actual).Cents()
	if diff < 0 {
		diff = -diff
	}
	m.LedgerDriftCents.Observe(float64(diff))
	return nil
}
