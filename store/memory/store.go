// Package memory provides an in-process store. Project locks are
// per-project and cancellable; writes made inside a transaction are staged
// and applied together on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// Compile-time interface checks.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

// Store implements store.Store in memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	projects      map[string]*project.Project
	subscriptions map[string]*subscription.Subscription
	order         []string
	closed        bool

	lockMu sync.Mutex
	locks  map[string]chan struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:      make(map[string]*project.Project),
		subscriptions: make(map[string]*subscription.Subscription),
		locks:         make(map[string]chan struct{}),
	}
}

// ──────────────────────────────────────────────────
// Project Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fundraise.ErrStoreClosed
	}
	if _, exists := s.projects[p.ID.String()]; exists {
		return fundraise.ErrProjectExists
	}
	cp := *p
	s.projects[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID id.ProjectID) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.projects[projectID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fundraise.ErrProjectNotFound
}

// ──────────────────────────────────────────────────
// Subscription Store implementation
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, fundraise.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptions(_ context.Context, projectID id.ProjectID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return window(s.filter(func(sub *subscription.Subscription) bool {
		return sub.ProjectID.Equal(projectID)
	}), opts), nil
}

func (s *Store) ListInvestorSubscriptions(_ context.Context, investorID id.InvestorID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return window(s.filter(func(sub *subscription.Subscription) bool {
		return sub.InvestorID.Equal(investorID)
	}), opts), nil
}

// filter returns copies in creation order. Callers hold s.mu.
func (s *Store) filter(keep func(*subscription.Subscription) bool) []*subscription.Subscription {
	var result []*subscription.Subscription
	for _, key := range s.order {
		sub := s.subscriptions[key]
		if keep(sub) {
			cp := *sub
			result = append(result, &cp)
		}
	}
	return result
}

func window(subs []*subscription.Subscription, opts subscription.ListOpts) []*subscription.Subscription {
	start, end := opts.Window(len(subs))
	return subs[start:end]
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fundraise.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Locked transactions
// ──────────────────────────────────────────────────

func (s *Store) projectLock(projectID id.ProjectID) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	key := projectID.String()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// InProjectTx holds the project's lock while fn runs. Staged writes are
// applied only if fn succeeds and ctx is still live.
func (s *Store) InProjectTx(ctx context.Context, projectID id.ProjectID, fn store.TxFunc) error {
	lock := s.projectLock(projectID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock }()

	if err := s.Ping(ctx); err != nil {
		return err
	}

	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	t := &tx{
		store:   s,
		project: p.ID,
		amounts: make(map[string]types.Money),
		shares:  make(map[string]types.Percent),
	}

	if err := fn(ctx, t, p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fundraise.ErrStoreClosed
	}

	// Uniqueness backstop on (investor, project).
	for _, ins := range t.inserts {
		for _, existing := range s.subscriptions {
			if existing.ProjectID.Equal(ins.ProjectID) && existing.InvestorID.Equal(ins.InvestorID) {
				return fundraise.ErrIntegrity
			}
		}
	}

	now := time.Now().UTC()
	for _, ins := range t.inserts {
		cp := *ins
		s.subscriptions[cp.ID.String()] = &cp
		s.order = append(s.order, cp.ID.String())
	}
	for key, amount := range t.amounts {
		if sub, ok := s.subscriptions[key]; ok {
			sub.Amount = amount
			sub.UpdatedAt = now
		}
	}
	for key, share := range t.shares {
		if sub, ok := s.subscriptions[key]; ok {
			sub.InvestmentShare = share
			sub.UpdatedAt = now
		}
	}
	if t.funding != nil {
		p := s.projects[t.project.String()]
		p.CurrentFunding = *t.funding
		p.UpdatedAt = now
	}
	return nil
}

// tx stages writes against one locked project.
type tx struct {
	store   *Store
	project id.ProjectID

	inserts []*subscription.Subscription
	amounts map[string]types.Money
	shares  map[string]types.Percent
	funding *types.Money
}

// view returns the project's subscriptions with staged writes applied.
func (t *tx) view() []*subscription.Subscription {
	t.store.mu.RLock()
	subs := t.store.filter(func(sub *subscription.Subscription) bool {
		return sub.ProjectID.Equal(t.project)
	})
	t.store.mu.RUnlock()

	for _, ins := range t.inserts {
		cp := *ins
		subs = append(subs, &cp)
	}
	for _, sub := range subs {
		if amount, ok := t.amounts[sub.ID.String()]; ok {
			sub.Amount = amount
		}
		if share, ok := t.shares[sub.ID.String()]; ok {
			sub.InvestmentShare = share
		}
	}
	return subs
}

func (t *tx) find(subID id.SubscriptionID) *subscription.Subscription {
	for _, sub := range t.view() {
		if sub.ID.Equal(subID) {
			return sub
		}
	}
	return nil
}

func (t *tx) SumAmounts(_ context.Context, exclude id.SubscriptionID) (types.Money, error) {
	var total types.Money
	for _, sub := range t.view() {
		if !exclude.IsNil() && sub.ID.Equal(exclude) {
			continue
		}
		total = total.Add(sub.Amount)
	}
	return total, nil
}

func (t *tx) ListSubscriptions(_ context.Context) ([]*subscription.Subscription, error) {
	return t.view(), nil
}

func (t *tx) FindByInvestor(_ context.Context, investorID id.InvestorID) (*subscription.Subscription, error) {
	for _, sub := range t.view() {
		if sub.InvestorID.Equal(investorID) {
			return sub, nil
		}
	}
	return nil, fundraise.ErrSubscriptionNotFound
}

func (t *tx) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	if sub := t.find(subID); sub != nil {
		return sub, nil
	}
	return nil, fundraise.ErrSubscriptionNotFound
}

func (t *tx) InsertSubscription(_ context.Context, sub *subscription.Subscription) error {
	if !sub.ProjectID.Equal(t.project) {
		return fundraise.ErrInvalidInput
	}
	for _, existing := range t.view() {
		if existing.ID.Equal(sub.ID) || existing.InvestorID.Equal(sub.InvestorID) {
			return fundraise.ErrIntegrity
		}
	}
	cp := *sub
	t.inserts = append(t.inserts, &cp)
	return nil
}

func (t *tx) UpdateAmount(_ context.Context, subID id.SubscriptionID, amount types.Money) error {
	if t.find(subID) == nil {
		return fundraise.ErrSubscriptionNotFound
	}
	t.amounts[subID.String()] = amount
	return nil
}

func (t *tx) UpdateShare(_ context.Context, subID id.SubscriptionID, share types.Percent) error {
	if t.find(subID) == nil {
		return fundraise.ErrSubscriptionNotFound
	}
	t.shares[subID.String()] = share
	return nil
}

func (t *tx) SetCurrentFunding(_ context.Context, total types.Money) error {
	t.funding = &total
	return nil
}
