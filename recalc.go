package fundraise

import (
	"context"

	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// recalculateShares recomputes every live subscription's share of p's goal
// from its stored amount and writes only the rows whose value changed. It
// returns the subscriptions with their current shares and the number of
// rows written. A second run with no intervening writes changes nothing.
func recalculateShares(ctx context.Context, tx store.Tx, p *project.Project) ([]*subscription.Subscription, int, error) {
	subs, err := tx.ListSubscriptions(ctx)
	if err != nil {
		return nil, 0, err
	}

	changed := 0
	for _, s := range subs {
		share := types.Share(s.Amount, p.FundingGoal)
		if share == s.InvestmentShare {
			continue
		}
		if err := tx.UpdateShare(ctx, s.ID, share); err != nil {
			return nil, changed, err
		}
		s.InvestmentShare = share
		changed++
	}

	return subs, changed, nil
}
