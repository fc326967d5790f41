package iap

import "github.com/xraph/iap/id"

// ID is the primary identifier type for all adapter entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
