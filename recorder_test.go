package fundraise_test

import (
	"context"
	"sync"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/plugin"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

var (
	_ plugin.OnSubscriptionCreated = (*recorder)(nil)
	_ plugin.OnSubscriptionUpdated = (*recorder)(nil)
	_ plugin.OnProjectChanged      = (*recorder)(nil)
	_ plugin.OnProjectFunded       = (*recorder)(nil)
	_ plugin.OnCapacityRejected    = (*recorder)(nil)
	_ plugin.OnSharesRecalculated  = (*recorder)(nil)
	_ plugin.OnLedgerDrift         = (*recorder)(nil)
)

// recorder counts the hooks it receives.
type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecorder() *recorder {
	return &recorder{counts: make(map[string]int)}
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) hit(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[event]++
	return nil
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[event]
}

func (r *recorder) OnSubscriptionCreated(context.Context, *subscription.Subscription, *project.Project) error {
	return r.hit("created")
}

func (r *recorder) OnSubscriptionUpdated(context.Context, *subscription.Subscription, types.Money) error {
	return r.hit("updated")
}

func (r *recorder) OnProjectChanged(context.Context, id.ProjectID, plugin.ChangeKind) error {
	return r.hit("changed")
}

func (r *recorder) OnProjectFunded(context.Context, *project.Project) error {
	return r.hit("funded")
}

func (r *recorder) OnCapacityRejected(context.Context, id.ProjectID, types.Money, error) error {
	return r.hit("rejected")
}

func (r *recorder) OnSharesRecalculated(context.Context, id.ProjectID, int) error {
	return r.hit("shares")
}

func (r *recorder) OnLedgerDrift(context.Context, id.ProjectID, types.Money, types.Money) error {
	return r.hit("drift")
}
