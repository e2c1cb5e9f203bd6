package fundraise

import "github.com/xraph/fundraise/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Percent is re-exported from types package.
type Percent = types.Percent

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors and helpers
var (
	Cents          = types.Cents
	ParseMoney     = types.ParseMoney
	MustParseMoney = types.MustParseMoney
	Share          = types.Share
	Sum            = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
