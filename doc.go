// Package fundraise keeps a project's committed funding consistent while
// many investors subscribe to it at once.
//
// Fundraise is designed as a library, not a service. Every write that
// affects a project's capacity runs through one pipeline:
//
//   - Authority: side-effect-free validation before any lock is taken
//   - Gate: a transaction holding the exclusive lock on the project row
//   - Ledger: the capacity check against the sum of live subscriptions
//   - Recalculator: every investor's share re-derived from stored amounts
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/fundraise"
//	    "github.com/xraph/fundraise/store/postgres"
//	)
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := fundraise.New(store, fundraise.WithIdentity(directory))
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	res, err := engine.Subscribe(ctx, fundraise.SubscribeInput{
//	    InvestorID: investorID,
//	    ProjectID:  projectID,
//	    Amount:     fundraise.MustParseMoney("200.00"),
//	})
//
// # Money
//
// Amounts are integer cents and shares are integer hundredths of a percent.
// No float is used anywhere. A share is amount / goal × 100 rounded half-up
// to two decimals, computed once per recalculation from stored amounts.
//
// # Running total
//
// A project's CurrentFunding is a cache. The authoritative total is the sum
// of its live subscriptions, read under the lock; the cache is rewritten to
// that sum inside every accepted write. A disagreement between the two is
// logged, reported to OnLedgerDrift plugins and healed by the same write.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	proj_01h2xcejqtf2nbrexx3vqjhp41  // Project ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
//	inv_01h455vb4pex5vsknk084sn02q   // Investor ID
package fundraise
