package subscription

import (
	"context"

	"github.com/xraph/fundraise/id"
)

// Store is the unlocked read side of subscription persistence. Inserts and
// amount changes go through store.Tx while the project lock is held.
type Store interface {
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, projectID id.ProjectID, opts ListOpts) ([]*Subscription, error)
	ListInvestorSubscriptions(ctx context.Context, investorID id.InvestorID, opts ListOpts) ([]*Subscription, error)
}

// ListOpts pages through subscriptions in creation order.
type ListOpts struct {
	Limit  int
	Offset int
}

// Window applies Offset and Limit to n items and returns the slice bounds.
func (o ListOpts) Window(n int) (start, end int) {
	start = o.Offset
	if start > n {
		start = n
	}
	if start < 0 {
		start = 0
	}
	if o.Limit <= 0 || o.Limit > n-start {
		return start, n
	}
	return start, start + o.Limit
}
