// Package audithook bridges IAP lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/iap/hook"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/purchase"
)

// Compile-time interface checks.
var (
	_ hook.Hook                  = (*Extension)(nil)
	_ hook.OnInitResult          = (*Extension)(nil)
	_ hook.OnPurchaseResult      = (*Extension)(nil)
	_ hook.OnRestoreRequested    = (*Extension)(nil)
	_ hook.OnTransactionRecorded = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges IAP lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Initialization hooks
// ──────────────────────────────────────────────────

// OnInitResult implements hook.OnInitResult.
func (e *Extension) OnInitResult(ctx context.Context, result interface{}) error {
	res, ok := result.(*purchase.InitResult)
	if !ok {
		return nil
	}

	if res.Success {
		return e.record(ctx, ActionStoreInitialized, SeverityInfo, OutcomeSuccess,
			ResourceStore, res.Store, CategoryLifecycle,
			"store", res.Store,
			"products", res.Products,
		)
	}
	return e.record(ctx, ActionStoreInitFailed, SeverityError, OutcomeFailure,
		ResourceStore, res.Store, CategoryLifecycle,
		"store", res.Store,
	)
}

// ──────────────────────────────────────────────────
// Purchase hooks
// ──────────────────────────────────────────────────

// OnPurchaseResult implements hook.OnPurchaseResult.
func (e *Extension) OnPurchaseResult(ctx context.Context, result interface{}) error {
	res, ok := result.(*purchase.Result)
	if !ok {
		return nil
	}

	switch {
	case res.Success && res.Restored:
		return e.record(ctx, ActionPurchaseRestored, SeverityInfo, OutcomeSuccess,
			ResourcePurchase, res.ProductID, CategoryCommerce,
			"product", res.ProductID,
			"store", res.Store,
			"kind", string(res.Kind),
		)
	case res.Success:
		return e.record(ctx, ActionPurchaseCompleted, SeverityInfo, OutcomeSuccess,
			ResourcePurchase, res.ProductID, CategoryCommerce,
			"product", res.ProductID,
			"store", res.Store,
			"kind", string(res.Kind),
			"amount", res.Price.Amount,
			"currency", res.Price.Currency,
		)
	default:
		return e.record(ctx, ActionPurchaseFailed, SeverityWarning, OutcomeFailure,
			ResourcePurchase, res.ProductID, CategoryCommerce,
			"product", res.ProductID,
			"store", res.Store,
			"reason", res.Reason,
		)
	}
}

// ──────────────────────────────────────────────────
// Restoration and journal hooks
// ──────────────────────────────────────────────────

// OnRestoreRequested implements hook.OnRestoreRequested.
func (e *Extension) OnRestoreRequested(ctx context.Context, store string) error {
	return e.record(ctx, ActionRestoreRequested, SeverityInfo, OutcomeSuccess,
		ResourceStore, store, CategoryCommerce,
		"store", store,
	)
}

// OnTransactionRecorded implements hook.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, entry interface{}) error {
	txn, ok := entry.(*journal.Entry)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionTransactionRecorded, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txn.ID.String(), CategoryCommerce,
		"transaction_id", txn.ID.String(),
		"product", txn.ProductID,
		"success", txn.Success,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
