// Package notifyhook bridges fundraise events to a notification subsystem.
//
// It defines a local Notifier interface so the package does not depend on
// any delivery channel. Callers inject a NotifierFunc adapter at wiring
// time; delivery itself happens elsewhere.
package notifyhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/plugin"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated = (*Extension)(nil)
	_ plugin.OnSubscriptionUpdated = (*Extension)(nil)
	_ plugin.OnCapacityRejected    = (*Extension)(nil)
	_ plugin.OnProjectChanged      = (*Extension)(nil)
	_ plugin.OnProjectFunded       = (*Extension)(nil)
	_ plugin.OnLedgerDrift         = (*Extension)(nil)
)

// Notifier is the notification subsystem's inbound port.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// Notification is one outbound signal.
type Notification struct {
	Topic     string         `json:"topic"`
	Audience  string         `json:"audience"`
	Priority  string         `json:"priority"`
	ProjectID string         `json:"project_id"`
	SubjectID string         `json:"subject_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// NotifierFunc is an adapter to use a plain function as a Notifier.
type NotifierFunc func(ctx context.Context, n *Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// Extension bridges fundraise events to a Notifier.
type Extension struct {
	notifier Notifier
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that sends notifications through n.
func New(n Notifier, opts ...Option) *Extension {
	e := &Extension{
		notifier: n,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "notify-hook" }

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, p *project.Project) error {
	return e.send(ctx, TopicSubscriptionCreated, AudienceStartup, PriorityNormal,
		sub.ProjectID, sub.ID.String(),
		"investor_id", sub.InvestorID.String(),
		"amount", sub.Amount.FormatMajor(),
		"investment_share", sub.InvestmentShare.FormatMajor(),
		"remaining_funding", p.Remaining().FormatMajor(),
	)
}

// OnSubscriptionUpdated implements plugin.OnSubscriptionUpdated.
func (e *Extension) OnSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription, previous types.Money) error {
	return e.send(ctx, TopicSubscriptionUpdated, AudienceStartup, PriorityNormal,
		sub.ProjectID, sub.ID.String(),
		"investor_id", sub.InvestorID.String(),
		"previous", previous.FormatMajor(),
		"amount", sub.Amount.FormatMajor(),
		"investment_share", sub.InvestmentShare.FormatMajor(),
	)
}

// OnCapacityRejected implements plugin.OnCapacityRejected.
func (e *Extension) OnCapacityRejected(ctx context.Context, projectID id.ProjectID, requested types.Money, reason error) error {
	return e.send(ctx, TopicCapacityRejected, AudienceOps, PriorityLow,
		projectID, "",
		"requested", requested.FormatMajor(),
		"reason", reason.Error(),
	)
}

// ──────────────────────────────────────────────────
// Project hooks
// ──────────────────────────────────────────────────

// OnProjectChanged implements plugin.OnProjectChanged.
func (e *Extension) OnProjectChanged(ctx context.Context, projectID id.ProjectID, kind plugin.ChangeKind) error {
	return e.send(ctx, TopicProjectChanged, AudienceInvestor, PriorityLow,
		projectID, "",
		"change", string(kind),
	)
}

// OnProjectFunded implements plugin.OnProjectFunded.
func (e *Extension) OnProjectFunded(ctx context.Context, p *project.Project) error {
	return e.send(ctx, TopicProjectFunded, AudienceStartup, PriorityHigh,
		p.ID, p.StartupID.String(),
		"funding_goal", p.FundingGoal.FormatMajor(),
		"current_funding", p.CurrentFunding.FormatMajor(),
	)
}

// OnLedgerDrift implements plugin.OnLedgerDrift.
func (e *Extension) OnLedgerDrift(ctx context.Context, projectID id.ProjectID, cached, actual types.Money) error {
	return e.send(ctx, TopicLedgerDrift, AudienceOps, PriorityHigh,
		projectID, "",
		"cached", cached.FormatMajor(),
		"actual", actual.FormatMajor(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// send builds and delivers a notification if the topic is enabled.
// Delivery failures are logged, never returned.
func (e *Extension) send(
	ctx context.Context,
	topic, audience, priority string,
	projectID id.ProjectID, subjectID string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[topic] {
		return nil
	}

	data := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		data[key] = kvPairs[i+1]
	}

	n := &Notification{
		Topic:     topic,
		Audience:  audience,
		Priority:  priority,
		ProjectID: projectID.String(),
		SubjectID: subjectID,
		Data:      data,
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("notifyhook: failed to deliver notification",
			"topic", topic,
			"project_id", n.ProjectID,
			"error", err,
		)
	}
	return nil
}
