// Package store declares the persistence contract every backend fulfils.
package store

import (
	"context"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// TxFunc is the body of a locked project transaction. The project passed in
// was read after the lock was acquired.
type TxFunc func(ctx context.Context, tx Tx, p *project.Project) error

// Store is the unified storage interface.
type Store interface {
	project.Store
	subscription.Store

	// InProjectTx opens a transaction, takes the exclusive lock on the
	// project row and runs fn. The transaction commits when fn returns nil
	// and rolls back otherwise, including when ctx is cancelled. Returns
	// the not-found sentinel when the project does not exist.
	InProjectTx(ctx context.Context, projectID id.ProjectID, fn TxFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx exposes the writes allowed while a project lock is held. Every method
// is scoped to the locked project.
type Tx interface {
	// SumAmounts returns the sum of live subscription amounts, leaving out
	// the subscription identified by exclude unless it is id.Nil.
	SumAmounts(ctx context.Context, exclude id.SubscriptionID) (types.Money, error)

	// ListSubscriptions returns every live subscription of the project.
	ListSubscriptions(ctx context.Context) ([]*subscription.Subscription, error)

	// FindByInvestor returns the investor's live subscription, or the
	// subscription not-found sentinel.
	FindByInvestor(ctx context.Context, investorID id.InvestorID) (*subscription.Subscription, error)

	// GetSubscription re-reads a subscription of the locked project.
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)

	InsertSubscription(ctx context.Context, s *subscription.Subscription) error
	UpdateAmount(ctx context.Context, subID id.SubscriptionID, amount types.Money) error
	UpdateShare(ctx context.Context, subID id.SubscriptionID, share types.Percent) error

	// SetCurrentFunding rewrites the project's cached running total.
	SetCurrentFunding(ctx context.Context, total types.Money) error
}
