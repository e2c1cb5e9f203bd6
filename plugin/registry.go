package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// DefaultTimeout bounds every plugin call. Plugins never block a request
// longer than this.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It caches each plugin's hook interfaces at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onSubscriptionCreated []OnSubscriptionCreated
	onSubscriptionUpdated []OnSubscriptionUpdated
	onCapacityRejected    []OnCapacityRejected
	onProjectChanged      []OnProjectChanged
	onProjectFunded       []OnProjectFunded
	onSharesRecalculated  []OnSharesRecalculated
	onLedgerDrift         []OnLedgerDrift
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
		hooks = append(hooks, "OnSubscriptionCreated")
	}
	if v, ok := p.(OnSubscriptionUpdated); ok {
		r.onSubscriptionUpdated = append(r.onSubscriptionUpdated, v)
		hooks = append(hooks, "OnSubscriptionUpdated")
	}
	if v, ok := p.(OnCapacityRejected); ok {
		r.onCapacityRejected = append(r.onCapacityRejected, v)
		hooks = append(hooks, "OnCapacityRejected")
	}
	if v, ok := p.(OnProjectChanged); ok {
		r.onProjectChanged = append(r.onProjectChanged, v)
		hooks = append(hooks, "OnProjectChanged")
	}
	if v, ok := p.(OnProjectFunded); ok {
		r.onProjectFunded = append(r.onProjectFunded, v)
		hooks = append(hooks, "OnProjectFunded")
	}
	if v, ok := p.(OnSharesRecalculated); ok {
		r.onSharesRecalculated = append(r.onSharesRecalculated, v)
		hooks = append(hooks, "OnSharesRecalculated")
	}
	if v, ok := p.(OnLedgerDrift); ok {
		r.onLedgerDrift = append(r.onLedgerDrift, v)
		hooks = append(hooks, "OnLedgerDrift")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitSubscriptionCreated calls OnSubscriptionCreated for all plugins that implement it.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, p *project.Project) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, pl := range plugins {
		r.dispatch(ctx, pl.Name(), "OnSubscriptionCreated", func() error {
			return pl.OnSubscriptionCreated(ctx, sub, p)
		})
	}
}

// EmitSubscriptionUpdated calls OnSubscriptionUpdated for all plugins that implement it.
func (r *Registry) EmitSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription, previous types.Money) {
	r.mu.RLock()
	plugins := r.onSubscriptionUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSubscriptionUpdated", func() error {
			return p.OnSubscriptionUpdated(ctx, sub, previous)
		})
	}
}

// EmitCapacityRejected calls OnCapacityRejected for all plugins that implement it.
func (r *Registry) EmitCapacityRejected(ctx context.Context, projectID id.ProjectID, requested types.Money, reason error) {
	r.mu.RLock()
	plugins := r.onCapacityRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnCapacityRejected", func() error {
			return p.OnCapacityRejected(ctx, projectID, requested, reason)
		})
	}
}

// EmitProjectChanged calls OnProjectChanged for all plugins that implement it.
func (r *Registry) EmitProjectChanged(ctx context.Context, projectID id.ProjectID, kind ChangeKind) {
	r.mu.RLock()
	plugins := r.onProjectChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnProjectChanged", func() error {
			return p.OnProjectChanged(ctx, projectID, kind)
		})
	}
}

// EmitProjectFunded calls OnProjectFunded for all plugins that implement it.
func (r *Registry) EmitProjectFunded(ctx context.Context, p *project.Project) {
	r.mu.RLock()
	plugins := r.onProjectFunded
	r.mu.RUnlock()

	for _, pl := range plugins {
		r.dispatch(ctx, pl.Name(), "OnProjectFunded", func() error {
			return pl.OnProjectFunded(ctx, p)
		})
	}
}

// EmitSharesRecalculated calls OnSharesRecalculated for all plugins that implement it.
func (r *Registry) EmitSharesRecalculated(ctx context.Context, projectID id.ProjectID, changed int) {
	r.mu.RLock()
	plugins := r.onSharesRecalculated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSharesRecalculated", func() error {
			return p.OnSharesRecalculated(ctx, projectID, changed)
		})
	}
}

// EmitLedgerDrift calls OnLedgerDrift for all plugins that implement it.
func (r *Registry) EmitLedgerDrift(ctx context.Context, projectID id.ProjectID, cached, actual types.Money) {
	r.mu.RLock()
	plugins := r.onLedgerDrift
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnLedgerDrift", func() error {
			return p.OnLedgerDrift(ctx, projectID, cached, actual)
		})
	}
}

// dispatch runs one hook and logs its failure. Hooks run after commit, so a
// failing plugin never undoes a write.
func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
