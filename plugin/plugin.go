// Package plugin provides an extensible plugin system for fundraise.
// Plugins hook into engine events after the owning transaction commits.
package plugin

import (
	"context"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ChangeKind says what kind of write touched a project.
type ChangeKind string

const (
	ChangeSubscriptionCreated ChangeKind = "subscription.created"
	ChangeSubscriptionUpdated ChangeKind = "subscription.updated"
	ChangeReconciled          ChangeKind = "project.reconciled"
)

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called after a new subscription commits.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, p *project.Project) error
}

// OnSubscriptionUpdated is called after a subscription amount change commits.
type OnSubscriptionUpdated interface {
	Plugin
	OnSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription, previous types.Money) error
}

// OnCapacityRejected is called when the funding ledger refuses an amount.
type OnCapacityRejected interface {
	Plugin
	OnCapacityRejected(ctx context.Context, projectID id.ProjectID, requested types.Money, reason error) error
}

// ──────────────────────────────────────────────────
// Project hooks
// ──────────────────────────────────────────────────

// OnProjectChanged is the "subscription changed for project X" signal.
// It fires once per committed write, whatever its kind.
type OnProjectChanged interface {
	Plugin
	OnProjectChanged(ctx context.Context, projectID id.ProjectID, kind ChangeKind) error
}

// OnProjectFunded is called when a commit moves a project to fully funded.
type OnProjectFunded interface {
	Plugin
	OnProjectFunded(ctx context.Context, p *project.Project) error
}

// OnSharesRecalculated is called after a commit that rewrote share rows.
type OnSharesRecalculated interface {
	Plugin
	OnSharesRecalculated(ctx context.Context, projectID id.ProjectID, changed int) error
}

// OnLedgerDrift is called when the cached running total disagreed with the
// sum of subscriptions under the lock. The cache has already been rewritten.
type OnLedgerDrift interface {
	Plugin
	OnLedgerDrift(ctx context.Context, projectID id.ProjectID, cached, actual types.Money) error
}
