package fundraise

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// ──────────────────────────────────────────────────
// Subscription authority
// ──────────────────────────────────────────────────
//
// Everything in this file runs before the project lock is taken and has no
// side effects. Values read here are advisory; the locked section re-reads
// the project and revalidates capacity.

// minimumAmount is the smallest accepted subscription.
const minimumAmount = types.Money(1)

func validateAmount(amount types.Money) error {
	if amount < minimumAmount {
		return newValidationError("amount", ErrInvalidAmount)
	}
	return nil
}

// authorizeCreate checks a new subscription request and returns the
// resolved investor and the advisory project snapshot.
func (e *Engine) authorizeCreate(ctx context.Context, in SubscribeInput) (*identity.Investor, *project.Project, error) {
	if in.InvestorID.IsNil() {
		return nil, nil, newValidationError("investor", ErrMissingField)
	}
	if in.ProjectID.IsNil() {
		return nil, nil, newValidationError("project", ErrMissingField)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, nil, err
	}

	inv, err := e.lookupInvestor(ctx, in.InvestorID)
	if err != nil {
		return nil, nil, err
	}

	p, err := e.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	if err := e.checkSelfInvestment(ctx, inv, p); err != nil {
		return nil, nil, err
	}

	return inv, p, nil
}

// authorizeUpdate checks an amount change. Investor and project are fixed
// once a subscription exists; any attempt to change them is rejected even
// when the amount changes too.
func (e *Engine) authorizeUpdate(ctx context.Context, in UpdateInput) (*subscription.Subscription, error) {
	if in.SubscriptionID.IsNil() {
		return nil, newValidationError("subscription", ErrMissingField)
	}

	sub, err := e.store.GetSubscription(ctx, in.SubscriptionID)
	if err != nil {
		return nil, err
	}

	// Callers only see their own subscriptions.
	if !in.ActingInvestorID.IsNil() && !in.ActingInvestorID.Equal(sub.InvestorID) {
		return nil, ErrSubscriptionNotFound
	}

	if in.InvestorID != nil && !in.InvestorID.Equal(sub.InvestorID) {
		return nil, newValidationError("investor", ErrImmutableField)
	}
	if in.ProjectID != nil && !in.ProjectID.Equal(sub.ProjectID) {
		return nil, newValidationError("project", ErrImmutableField)
	}

	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}

	inv, err := e.lookupInvestor(ctx, sub.InvestorID)
	if err != nil {
		return nil, err
	}
	p, err := e.store.GetProject(ctx, sub.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := e.checkSelfInvestment(ctx, inv, p); err != nil {
		return nil, err
	}

	return sub, nil
}

func (e *Engine) lookupInvestor(ctx context.Context, investorID id.InvestorID) (*identity.Investor, error) {
	if e.identity == nil {
		return nil, fmt.Errorf("%w: no identity directory configured", ErrInvestorNotFound)
	}
	inv, err := e.identity.GetInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// checkSelfInvestment rejects an investor whose user owns the startup
// behind the project.
func (e *Engine) checkSelfInvestment(ctx context.Context, inv *identity.Investor, p *project.Project) error {
	owns, err := e.OwnsProject(ctx, inv, p)
	if err != nil {
		return err
	}
	if owns {
		return newValidationError("project", ErrSelfInvestment)
	}
	return nil
}

// OwnsProject reports whether the investor's user owns the startup behind
// the project.
func (e *Engine) OwnsProject(ctx context.Context, inv *identity.Investor, p *project.Project) (bool, error) {
	if e.identity == nil {
		return false, fmt.Errorf("%w: no identity directory configured", ErrStartupNotFound)
	}
	s, err := e.identity.GetStartup(ctx, p.StartupID)
	if err != nil {
		return false, err
	}
	return inv.OwnsStartup(s), nil
}

// ResolveInvestor maps an authenticated user to their investor profile.
func (e *Engine) ResolveInvestor(ctx context.Context, userID id.UserID) (*identity.Investor, error) {
	if userID.IsNil() || e.identity == nil {
		return nil, ErrUnauthorized
	}
	inv, err := e.identity.InvestorByUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return inv, nil
}

// isCallerError reports whether err should reach the caller unchanged.
func isCallerError(err error) bool {
	return IsValidation(err) ||
		IsCapacity(err) ||
		IsNotFound(err) ||
		IsAuthorization(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
