package iap

import (
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// ValidationError is re-exported from the catalog package.
type ValidationError = catalog.ValidationError

// Re-export Money constructors
var (
	USD        = types.USD
	EUR        = types.EUR
	Zero       = types.Zero
	FromMicros = types.FromMicros
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
