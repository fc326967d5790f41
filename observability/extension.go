// Package observability provides a metrics hook for the IAP adapter that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/iap/hook"
	"github.com/xraph/iap/purchase"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                  = (*MetricsExtension)(nil)
	_ hook.OnInit                = (*MetricsExtension)(nil)
	_ hook.OnInitResult          = (*MetricsExtension)(nil)
	_ hook.OnPurchaseResult      = (*MetricsExtension)(nil)
	_ hook.OnRestoreRequested    = (*MetricsExtension)(nil)
	_ hook.OnTransactionRecorded = (*MetricsExtension)(nil)
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

// MetricsExtension records adapter lifecycle metrics.
// Register it as an IAP hook to automatically track purchase metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Initialization metrics
	InitSucceeded Counter
	InitFailed    Counter

	// Purchase metrics
	PurchaseSucceeded Counter
	PurchaseFailed    Counter
	PurchaseRestored  Counter
	PurchaseAmount    Histogram

	// Restoration metrics
	RestoreRequested Counter

	// Journal metrics
	TransactionsRecorded Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Initialization metrics
		InitSucceeded: factory.Counter("iap.init.succeeded"),
		InitFailed:    factory.Counter("iap.init.failed"),

		// Purchase metrics
		PurchaseSucceeded: factory.Counter("iap.purchase.succeeded"),
		PurchaseFailed:    factory.Counter("iap.purchase.failed"),
		PurchaseRestored:  factory.Counter("iap.purchase.restored"),
		PurchaseAmount:    factory.Histogram("iap.purchase.amount"),

		// Restoration metrics
		RestoreRequested: factory.Counter("iap.restore.requested"),

		// Journal metrics
		TransactionsRecorded: factory.Counter("iap.journal.recorded"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnInitResult implements hook.OnInitResult.
func (m *MetricsExtension) OnInitResult(_ context.Context, result interface{}) error {
	res, ok := result.(*purchase.InitResult)
	if !ok {
		return nil
	}
	if res.Success {
		m.InitSucceeded.Inc()
	} else {
		m.InitFailed.Inc()
	}
	return nil
}

// OnPurchaseResult implements hook.OnPurchaseResult.
func (m *MetricsExtension) OnPurchaseResult(_ context.Context, result interface{}) error {
	res, ok := result.(*purchase.Result)
	if !ok {
		return nil
	}

	switch {
	case res.Success && res.Restored:
		m.PurchaseRestored.Inc()
	case res.Success:
		m.PurchaseSucceeded.Inc()
	default:
		m.PurchaseFailed.Inc()
	}

	if res.Success && res.Price.IsPositive() {
		m.PurchaseAmount.Observe(float64(res.Price.Amount))
	}
	return nil
}

// OnRestoreRequested implements hook.OnRestoreRequested.
func (m *MetricsExtension) OnRestoreRequested(_ context.Context, _ string) error {
	m.RestoreRequested.Inc()
	return nil
}

// OnTransactionRecorded implements hook.OnTransactionRecorded.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, _ interface{}) error {
	m.TransactionsRecorded.Inc()
	return nil
}
