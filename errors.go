package iap

import (
	"errors"
)

// Sentinel errors for common failure scenarios.
var (
	// Lifecycle errors
	ErrNotInitialized  = errors.New("iap: storefront not initialized")
	ErrStoreInitFailed = errors.New("iap: storefront initialization failed")
	ErrAdapterStopped  = errors.New("iap: adapter stopped")

	// Catalog errors
	ErrProductNotFound    = errors.New("iap: product not found in catalog")
	ErrProductUnavailable = errors.New("iap: product unavailable in store")
	ErrEmptyCatalog       = errors.New("iap: catalog has no products")

	// Purchase errors
	ErrPurchaseFailed     = errors.New("iap: purchase failed")
	ErrPurchasePending    = errors.New("iap: purchase already pending for product")
	ErrRestoreUnsupported = errors.New("iap: store does not support restoration")

	// Driver errors
	ErrDriverNotFound      = errors.New("iap: storefront driver not found")
	ErrDriverNotConfigured = errors.New("iap: storefront driver not configured")
	ErrVerificationFailed  = errors.New("iap: receipt verification failed")

	// Journal errors
	ErrJournalClosed   = errors.New("iap: journal is closed")
	ErrJournalRecord   = errors.New("iap: journal record failed")
	ErrMigrationFailed = errors.New("iap: migration failed")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrDriverNotFound)
}

// IsUnavailable returns true if the error means the product or store
// cannot serve purchases right now.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrStoreInitFailed) ||
		errors.Is(err, ErrDriverNotConfigured)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPurchasePending) ||
		errors.Is(err, ErrJournalRecord)
}
