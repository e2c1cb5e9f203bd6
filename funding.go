package fundraise

import (
	"context"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/types"
)

// ──────────────────────────────────────────────────
// Funding ledger
// ──────────────────────────────────────────────────

// ledgerDrift records a cached running total that disagreed with the sum
// of live subscriptions.
type ledgerDrift struct {
	cached types.Money
	actual types.Money
}

// existingTotal returns the authoritative committed total excluding the
// subscription being replaced (id.Nil on create). prior is the excluded
// subscription's stored amount. A cache that disagrees with the full sum
// is logged and returned so the caller can report it once committed.
func (e *Engine) existingTotal(ctx context.Context, tx store.Tx, p *project.Project, exclude id.SubscriptionID, prior types.Money) (types.Money, *ledgerDrift, error) {
	existing, err := tx.SumAmounts(ctx, exclude)
	if err != nil {
		return 0, nil, err
	}

	actual := existing.Add(prior)
	if actual == p.CurrentFunding {
		return existing, nil, nil
	}

	e.logger.Error("ledger drift: cached funding disagrees with subscriptions",
		"project_id", p.ID.String(),
		"cached", p.CurrentFunding.FormatMajor(),
		"actual", actual.FormatMajor(),
	)
	return existing, &ledgerDrift{cached: p.CurrentFunding, actual: actual}, nil
}

// checkCapacity applies the rejection policy: nothing is accepted once the
// existing total reaches the goal, and no amount may push the total past it.
func checkCapacity(p *project.Project, existing, requested types.Money) error {
	if existing >= p.FundingGoal {
		return &CapacityError{Remaining: 0, Err: ErrProjectFullyFunded}
	}
	remaining := p.FundingGoal.Subtract(existing)
	if requested > remaining {
		return &CapacityError{Remaining: remaining, Err: ErrCapacityExceeded}
	}
	return nil
}

// commitTotal rewrites the cached running total to the new authoritative
// value and mirrors it onto p.
func commitTotal(ctx context.Context, tx store.Tx, p *project.Project, total types.Money) error {
	if err := tx.SetCurrentFunding(ctx, total); err != nil {
		return err
	}
	p.CurrentFunding = total
	return nil
}
