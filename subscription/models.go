// Package subscription defines an investor's commitment toward a project.
package subscription

import (
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/types"
)

// Subscription is an investor's committed amount toward a project's
// funding goal. InvestmentShare is always derived from Amount and the
// project's goal and is never accepted from a client.
type Subscription struct {
	types.Entity
	ID              id.SubscriptionID `json:"id"`
	InvestorID      id.InvestorID     `json:"investor"`
	ProjectID       id.ProjectID      `json:"project"`
	Amount          types.Money       `json:"amount"`
	InvestmentShare types.Percent     `json:"investment_share"`
}
