// Package hook provides the adapter's notification channels.
//
// Listeners implement capability interfaces on top of the base Hook and
// are registered with a Registry. The two broadcast channels from the
// adapter's contract, initialization-result and purchase-result, are the
// OnInitResult and OnPurchaseResult interfaces; hooks exist so UI code
// never couples to the storefront client directly.
package hook

import "context"

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the adapter starts.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, adapter interface{}) error
}

// OnShutdown is called when the adapter is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Notification channels
// ──────────────────────────────────────────────────

// OnInitResult is the initialization-result channel. It fires exactly once
// per Initialize attempt, after the storefront client reports a terminal
// outcome. result is *purchase.InitResult.
type OnInitResult interface {
	Hook
	OnInitResult(ctx context.Context, result interface{}) error
}

// OnPurchaseResult is the purchase-result channel. It fires once per
// terminal purchase outcome: success, failure, or restored transaction.
// result is *purchase.Result.
type OnPurchaseResult interface {
	Hook
	OnPurchaseResult(ctx context.Context, result interface{}) error
}

// ──────────────────────────────────────────────────
// Supplementary hooks
// ──────────────────────────────────────────────────

// OnRestoreRequested is called when a restoration sweep is handed to a
// storefront that supports explicit restoration.
type OnRestoreRequested interface {
	Hook
	OnRestoreRequested(ctx context.Context, store string) error
}

// OnTransactionRecorded is called after a terminal purchase outcome is
// written to the transaction journal. entry is *journal.Entry.
type OnTransactionRecorded interface {
	Hook
	OnTransactionRecorded(ctx context.Context, entry interface{}) error
}
