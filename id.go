package fundraise

import "github.com/xraph/fundraise/id"

// ID is the primary identifier type for all fundraise entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
