package audithook

// Action constants for audit events.
const (
	// Initialization actions
	ActionStoreInitialized = "store.initialized"
	ActionStoreInitFailed  = "store.init_failed"

	// Purchase actions
	ActionPurchaseCompleted = "purchase.completed"
	ActionPurchaseFailed    = "purchase.failed"
	ActionPurchaseRestored  = "purchase.restored"

	// Restoration actions
	ActionRestoreRequested = "restore.requested"

	// Journal actions
	ActionTransactionRecorded = "transaction.recorded"
)

// Resource constants for audit events.
const (
	ResourceStore       = "store"
	ResourcePurchase    = "purchase"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryCommerce  = "commerce"
	CategoryLifecycle = "lifecycle"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
