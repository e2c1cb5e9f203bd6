package fundraise

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
	"github.com/xraph/fundraise/plugin"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// Engine is the funding consistency engine.
type Engine struct {
	store    store.Store
	identity identity.Directory
	plugins  *plugin.Registry
	logger   *slog.Logger
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithIdentity sets the investor and startup directory.
func WithIdentity(d identity.Directory) Option {
	return func(e *Engine) {
		e.identity = d
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("fundraise engine started",
		"plugins", e.plugins.Count(),
		"identity", e.identity != nil,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Projects
// ──────────────────────────────────────────────────

// RegisterProject seeds a project owned by the project-lifecycle subsystem.
// The project always starts with no committed funding.
func (e *Engine) RegisterProject(ctx context.Context, p *project.Project) error {
	if p.StartupID.IsNil() {
		return newValidationError("startup", ErrMissingField)
	}
	if p.FundingGoal < minimumAmount {
		return newValidationError("funding_goal", ErrInvalidGoal)
	}
	if e.identity != nil {
		if _, err := e.identity.GetStartup(ctx, p.StartupID); err != nil {
			return err
		}
	}

	if p.ID.IsNil() {
		p.ID = id.NewProjectID()
	}
	p.Entity = types.NewEntity()
	p.CurrentFunding = 0

	if err := e.store.CreateProject(ctx, p); err != nil {
		return err
	}

	e.logger.Info("project registered",
		"project_id", p.ID.String(),
		"funding_goal", p.FundingGoal.FormatMajor(),
	)

	return nil
}

// GetProject retrieves a project by ID.
func (e *Engine) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	return e.store.GetProject(ctx, projectID)
}

// FundingStatus summarizes a project's round.
type FundingStatus struct {
	ProjectID      id.ProjectID   `json:"project_id"`
	FundingGoal    types.Money    `json:"funding_goal"`
	CurrentFunding types.Money    `json:"current_funding"`
	Remaining      types.Money    `json:"remaining_funding"`
	Status         project.Status `json:"project_status"`
}

// FundingStatus reads the project's committed total and remaining capacity.
// The values come from the cache rewritten by the last committed write.
func (e *Engine) FundingStatus(ctx context.Context, projectID id.ProjectID) (*FundingStatus, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FundingStatus{
		ProjectID:      p.ID,
		FundingGoal:    p.FundingGoal,
		CurrentFunding: p.CurrentFunding,
		Remaining:      p.Remaining(),
		Status:         p.Status(),
	}, nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

// SubscribeInput is a request to commit capital to a project.
type SubscribeInput struct {
	InvestorID id.InvestorID
	ProjectID  id.ProjectID
	Amount     types.Money
}

// SubscribeResult is the outcome of an accepted subscription.
type SubscribeResult struct {
	Subscription     *subscription.Subscription `json:"subscription"`
	RemainingFunding types.Money                `json:"remaining_funding"`
	ProjectStatus    project.Status             `json:"project_status"`
}

// Subscribe creates a subscription. The capacity check, the insert, the
// cached-total rewrite and the share recalculation commit together under
// the project lock, or not at all.
func (e *Engine) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	if _, _, err := e.authorizeCreate(ctx, in); err != nil {
		return nil, err
	}

	var (
		out         *subscription.Subscription
		committed   project.Project
		wasFunded   bool
		drift       *ledgerDrift
		sharesMoved int
	)

	err := e.withProjectLock(ctx, "subscribe", in.ProjectID, func(ctx context.Context, tx store.Tx, p *project.Project) error {
		out, drift, sharesMoved = nil, nil, 0

		if _, err := tx.FindByInvestor(ctx, in.InvestorID); err == nil {
			return newValidationError("project", ErrSubscriptionExists)
		} else if !IsNotFound(err) {
			return err
		}

		existing, d, err := e.existingTotal(ctx, tx, p, id.Nil, 0)
		if err != nil {
			return err
		}
		drift = d
		wasFunded = existing >= p.FundingGoal

		if err := checkCapacity(p, existing, in.Amount); err != nil {
			return err
		}

		sub := &subscription.Subscription{
			Entity:     types.NewEntity(),
			ID:         id.NewSubscriptionID(),
			InvestorID: in.InvestorID,
			ProjectID:  p.ID,
			Amount:     in.Amount,
		}
		if err := tx.InsertSubscription(ctx, sub); err != nil {
			return err
		}

		if err := commitTotal(ctx, tx, p, existing.Add(in.Amount)); err != nil {
			return err
		}

		subs, changed, err := recalculateShares(ctx, tx, p)
		if err != nil {
			return err
		}
		sharesMoved = changed
		out = pick(subs, sub)
		committed = *p
		return nil
	})

	e.reportDrift(ctx, in.ProjectID, drift)
	if err != nil {
		e.reportRejection(ctx, in.ProjectID, in.Amount, err)
		return nil, err
	}

	e.logger.Info("subscription created",
		"subscription_id", out.ID.String(),
		"project_id", committed.ID.String(),
		"investor_id", out.InvestorID.String(),
		"amount", out.Amount.FormatMajor(),
		"current_funding", committed.CurrentFunding.FormatMajor(),
	)

	e.plugins.EmitSubscriptionCreated(ctx, out, &committed)
	e.afterWrite(ctx, &committed, wasFunded, sharesMoved, plugin.ChangeSubscriptionCreated)

	return &SubscribeResult{
		Subscription:     out,
		RemainingFunding: committed.Remaining(),
		ProjectStatus:    committed.Status(),
	}, nil
}

// UpdateInput is a request to change a subscription's amount. InvestorID
// and ProjectID are optional echoes of the stored values; a value that
// differs from the stored one is rejected. ActingInvestorID, when set,
// restricts the update to that investor's own subscription.
type UpdateInput struct {
	SubscriptionID   id.SubscriptionID
	Amount           types.Money
	InvestorID       *id.InvestorID
	ProjectID        *id.ProjectID
	ActingInvestorID id.InvestorID
}

// UpdateSubscription changes a subscription's amount. The capacity check
// excludes the subscription's own prior amount from the existing total.
func (e *Engine) UpdateSubscription(ctx context.Context, in UpdateInput) (*subscription.Subscription, error) {
	current, err := e.authorizeUpdate(ctx, in)
	if err != nil {
		return nil, err
	}
	projectID := current.ProjectID

	var (
		out         *subscription.Subscription
		previous    types.Money
		committed   project.Project
		wasFunded   bool
		drift       *ledgerDrift
		sharesMoved int
	)

	err = e.withProjectLock(ctx, "update_subscription", projectID, func(ctx context.Context, tx store.Tx, p *project.Project) error {
		out, drift, sharesMoved = nil, nil, 0

		sub, err := tx.GetSubscription(ctx, in.SubscriptionID)
		if err != nil {
			return err
		}
		previous = sub.Amount

		existing, d, err := e.existingTotal(ctx, tx, p, sub.ID, sub.Amount)
		if err != nil {
			return err
		}
		drift = d
		wasFunded = existing.Add(sub.Amount) >= p.FundingGoal

		if err := checkCapacity(p, existing, in.Amount); err != nil {
			return err
		}

		if in.Amount != sub.Amount {
			if err := tx.UpdateAmount(ctx, sub.ID, in.Amount); err != nil {
				return err
			}
		}

		if err := commitTotal(ctx, tx, p, existing.Add(in.Amount)); err != nil {
			return err
		}

		subs, changed, err := recalculateShares(ctx, tx, p)
		if err != nil {
			return err
		}
		sharesMoved = changed
		out = pick(subs, sub)
		out.Amount = in.Amount
		committed = *p
		return nil
	})

	e.reportDrift(ctx, projectID, drift)
	if err != nil {
		e.reportRejection(ctx, projectID, in.Amount, err)
		return nil, err
	}

	e.logger.Info("subscription updated",
		"subscription_id", out.ID.String(),
		"project_id", projectID.String(),
		"previous", previous.FormatMajor(),
		"amount", out.Amount.FormatMajor(),
		"current_funding", committed.CurrentFunding.FormatMajor(),
	)

	e.plugins.EmitSubscriptionUpdated(ctx, out, previous)
	e.afterWrite(ctx, &committed, wasFunded, sharesMoved, plugin.ChangeSubscriptionUpdated)

	return out, nil
}

// GetSubscription retrieves a subscription by ID.
func (e *Engine) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// ListSubscriptions lists a project's subscriptions in creation order.
func (e *Engine) ListSubscriptions(ctx context.Context, projectID id.ProjectID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptions(ctx, projectID, opts)
}

// ListInvestorSubscriptions lists an investor's subscriptions in creation order.
func (e *Engine) ListInvestorSubscriptions(ctx context.Context, investorID id.InvestorID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListInvestorSubscriptions(ctx, investorID, opts)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// ReconcileReport describes one reconciliation pass.
type ReconcileReport struct {
	ProjectID     id.ProjectID `json:"project_id"`
	CachedBefore  types.Money  `json:"cached_before"`
	Authoritative types.Money  `json:"authoritative"`
	Drifted       bool         `json:"drifted"`
	OverGoal      bool         `json:"over_goal"`
	SharesChanged int          `json:"shares_changed"`
}

// Reconcile rewrites the project's cached total from its live subscriptions
// and recalculates every share. It never moves money; it repairs state that
// was written outside the engine.
func (e *Engine) Reconcile(ctx context.Context, projectID id.ProjectID) (*ReconcileReport, error) {
	var (
		report *ReconcileReport
		drift  *ledgerDrift
	)

	err := e.withProjectLock(ctx, "reconcile", projectID, func(ctx context.Context, tx store.Tx, p *project.Project) error {
		report = &ReconcileReport{ProjectID: p.ID, CachedBefore: p.CurrentFunding}
		drift = nil

		total, d, err := e.existingTotal(ctx, tx, p, id.Nil, 0)
		if err != nil {
			return err
		}
		drift = d
		report.Authoritative = total
		report.Drifted = d != nil
		report.OverGoal = total > p.FundingGoal

		if report.Drifted {
			if err := commitTotal(ctx, tx, p, total); err != nil {
				return err
			}
		}

		_, changed, err := recalculateShares(ctx, tx, p)
		if err != nil {
			return err
		}
		report.SharesChanged = changed
		return nil
	})

	e.reportDrift(ctx, projectID, drift)
	if err != nil {
		return nil, err
	}

	if report.OverGoal {
		e.logger.Error("committed funding exceeds goal",
			"project_id", projectID.String(),
			"authoritative", report.Authoritative.FormatMajor(),
		)
	}

	e.logger.Info("project reconciled",
		"project_id", projectID.String(),
		"drifted", report.Drifted,
		"shares_changed", report.SharesChanged,
	)

	if report.Drifted || report.SharesChanged > 0 {
		if report.SharesChanged > 0 {
			e.plugins.EmitSharesRecalculated(ctx, projectID, report.SharesChanged)
		}
		e.plugins.EmitProjectChanged(ctx, projectID, plugin.ChangeReconciled)
	}

	return report, nil
}

// ──────────────────────────────────────────────────
// Signals
// ──────────────────────────────────────────────────

func (e *Engine) afterWrite(ctx context.Context, p *project.Project, wasFunded bool, sharesMoved int, kind plugin.ChangeKind) {
	if sharesMoved > 0 {
		e.plugins.EmitSharesRecalculated(ctx, p.ID, sharesMoved)
	}
	if !wasFunded && p.Status() == project.StatusFullyFunded {
		e.logger.Info("project fully funded", "project_id", p.ID.String())
		e.plugins.EmitProjectFunded(ctx, p)
	}
	e.plugins.EmitProjectChanged(ctx, p.ID, kind)
}

func (e *Engine) reportDrift(ctx context.Context, projectID id.ProjectID, d *ledgerDrift) {
	if d == nil {
		return
	}
	e.plugins.EmitLedgerDrift(ctx, projectID, d.cached, d.actual)
}

func (e *Engine) reportRejection(ctx context.Context, projectID id.ProjectID, requested types.Money, err error) {
	if !IsCapacity(err) {
		return
	}
	e.logger.Info("subscription rejected",
		"project_id", projectID.String(),
		"amount", requested.FormatMajor(),
		"reason", err.Error(),
	)
	e.plugins.EmitCapacityRejected(ctx, projectID, requested, err)
}

// pick returns the entry of subs matching want, falling back to want.
func pick(subs []*subscription.Subscription, want *subscription.Subscription) *subscription.Subscription {
	for _, s := range subs {
		if s.ID.Equal(want.ID) {
			return s
		}
	}
	return want
}
