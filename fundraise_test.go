package fundraise_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
	identitymem "github.com/xraph/fundraise/identity/memory"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/store/memory"
	"github.com/xraph/fundraise/store/sqlite"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// backends lists the stores every engine test runs against.
var backends = []struct {
	name string
	open func(t *testing.T) store.Store
}{
	{"memory", func(_ *testing.T) store.Store { return memory.New() }},
	{"sqlite", func(t *testing.T) store.Store {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "fundraise.db"))
		require.NoError(t, err)
		return s
	}},
}

type fixture struct {
	engine    *fundraise.Engine
	store     store.Store
	directory *identitymem.Directory
	founder   *identity.Investor
	startup   *identity.Startup
	events    *recorder
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()

	dir := identitymem.New()
	founderUser := id.NewUserID()
	founder := &identity.Investor{ID: id.NewInvestorID(), UserID: founderUser, Name: "founder"}
	startup := &identity.Startup{ID: id.NewStartupID(), OwnerUserID: founderUser, Name: "Acme"}
	dir.PutInvestor(founder)
	dir.PutStartup(startup)

	events := newRecorder()
	e := fundraise.New(s,
		fundraise.WithIdentity(dir),
		fundraise.WithPlugin(events),
	)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })

	return &fixture{engine: e, store: s, directory: dir, founder: founder, startup: startup, events: events}
}

func (f *fixture) investor(t *testing.T) id.InvestorID {
	t.Helper()
	inv := &identity.Investor{ID: id.NewInvestorID(), UserID: id.NewUserID()}
	f.directory.PutInvestor(inv)
	return inv.ID
}

func (f *fixture) project(t *testing.T, goal string) *project.Project {
	t.Helper()
	p := &project.Project{StartupID: f.startup.ID, Name: "Seed", FundingGoal: types.MustParseMoney(goal)}
	require.NoError(t, f.engine.RegisterProject(context.Background(), p))
	return p
}

func (f *fixture) subscribe(t *testing.T, projectID id.ProjectID, amount string) *fundraise.SubscribeResult {
	t.Helper()
	res, err := f.engine.Subscribe(context.Background(), fundraise.SubscribeInput{
		InvestorID: f.investor(t),
		ProjectID:  projectID,
		Amount:     types.MustParseMoney(amount),
	})
	require.NoError(t, err)
	return res
}

func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newFixture(t, b.open(t)))
		})
	}
}

func funding(t *testing.T, f *fixture, projectID id.ProjectID) types.Money {
	t.Helper()
	p, err := f.engine.GetProject(context.Background(), projectID)
	require.NoError(t, err)
	return p.CurrentFunding
}

// ──────────────────────────────────────────────────
// Example scenarios
// ──────────────────────────────────────────────────

func TestSubscribe_PartiallyFunded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")

		res := f.subscribe(t, p.ID, "200.00")

		assert.Equal(t, "200.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, "800.00", res.RemainingFunding.FormatMajor())
		assert.Equal(t, project.StatusPartiallyFunded, res.ProjectStatus)
		assert.Equal(t, "20.00", res.Subscription.InvestmentShare.FormatMajor())
		assert.Equal(t, p.ID.String(), res.Subscription.ProjectID.String())
	})
}

func TestSubscribe_ReachesGoal(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		f.subscribe(t, p.ID, "900.00")

		res := f.subscribe(t, p.ID, "100.00")

		assert.Equal(t, "1000.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, "0.00", res.RemainingFunding.FormatMajor())
		assert.Equal(t, project.StatusFullyFunded, res.ProjectStatus)
		assert.Equal(t, 1, f.events.count("funded"))
	})
}

func TestSubscribe_AlreadyFullyFunded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		f.subscribe(t, p.ID, "1000.00")

		_, err := f.engine.Subscribe(context.Background(), fundraise.SubscribeInput{
			InvestorID: f.investor(t),
			ProjectID:  p.ID,
			Amount:     types.MustParseMoney("1.00"),
		})

		require.Error(t, err)
		assert.True(t, fundraise.IsCapacity(err))
		assert.ErrorIs(t, err, fundraise.ErrProjectFullyFunded)

		var ce *fundraise.CapacityError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "project is already fully funded", ce.Message())
		assert.Equal(t, "1000.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, 1, f.events.count("rejected"))
	})
}

func TestRecalculation_SharesOfGoal(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "400.00")
		first := f.subscribe(t, p.ID, "100.00")
		second := f.subscribe(t, p.ID, "300.00")

		a, err := f.engine.GetSubscription(ctx, first.Subscription.ID)
		require.NoError(t, err)
		b, err := f.engine.GetSubscription(ctx, second.Subscription.ID)
		require.NoError(t, err)

		assert.Equal(t, "25.00", a.InvestmentShare.FormatMajor())
		assert.Equal(t, "75.00", b.InvestmentShare.FormatMajor())
	})
}

func TestUpdate_ProjectIsImmutable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		other := f.project(t, "1000.00")
		res := f.subscribe(t, p.ID, "200.00")

		otherID := other.ID
		_, err := f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
			SubscriptionID: res.Subscription.ID,
			Amount:         types.MustParseMoney("300.00"),
			ProjectID:      &otherID,
		})

		require.Error(t, err)
		assert.True(t, fundraise.IsValidation(err))
		assert.ErrorIs(t, err, fundraise.ErrImmutableField)

		got, err := f.engine.GetSubscription(ctx, res.Subscription.ID)
		require.NoError(t, err)
		assert.Equal(t, "200.00", got.Amount.FormatMajor())
		assert.Equal(t, p.ID.String(), got.ProjectID.String())
		assert.Equal(t, res.Subscription.InvestorID.String(), got.InvestorID.String())
		assert.Equal(t, "200.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, "0.00", funding(t, f, other.ID).FormatMajor())
	})
}

// ──────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────

func TestSubscribe_ExceedsRemaining(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		f.subscribe(t, p.ID, "900.00")

		_, err := f.engine.Subscribe(context.Background(), fundraise.SubscribeInput{
			InvestorID: f.investor(t),
			ProjectID:  p.ID,
			Amount:     types.MustParseMoney("150.00"),
		})

		var ce *fundraise.CapacityError
		require.True(t, errors.As(err, &ce))
		assert.ErrorIs(t, err, fundraise.ErrCapacityExceeded)
		assert.Equal(t, "100.00", ce.Remaining.FormatMajor())
		assert.Equal(t, "amount exceeds remaining capacity; the maximum you can invest is 100.00", ce.Message())

		subs, err := f.engine.ListSubscriptions(context.Background(), p.ID, subscription.ListOpts{})
		require.NoError(t, err)
		assert.Len(t, subs, 1)
		assert.Equal(t, "900.00", funding(t, f, p.ID).FormatMajor())
	})
}

func TestUpdate_ExcludesOwnPriorAmount(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		a := f.subscribe(t, p.ID, "600.00")
		f.subscribe(t, p.ID, "400.00")

		updated, err := f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
			SubscriptionID: a.Subscription.ID,
			Amount:         types.MustParseMoney("500.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, "500.00", updated.Amount.FormatMajor())
		assert.Equal(t, "50.00", updated.InvestmentShare.FormatMajor())
		assert.Equal(t, "900.00", funding(t, f, p.ID).FormatMajor())

		_, err = f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
			SubscriptionID: a.Subscription.ID,
			Amount:         types.MustParseMoney("650.00"),
		})
		var ce *fundraise.CapacityError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "600.00", ce.Remaining.FormatMajor())

		updated, err = f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
			SubscriptionID: a.Subscription.ID,
			Amount:         types.MustParseMoney("600.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, "60.00", updated.InvestmentShare.FormatMajor())

		status, err := f.engine.FundingStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", status.CurrentFunding.FormatMajor())
		assert.Equal(t, project.StatusFullyFunded, status.Status)
	})
}

func TestUpdate_LoweringAmountReopensCapacity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		a := f.subscribe(t, p.ID, "700.00")
		b := f.subscribe(t, p.ID, "300.00")
		assert.Equal(t, project.StatusFullyFunded, b.ProjectStatus)

		updated, err := f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
			SubscriptionID: a.Subscription.ID,
			Amount:         types.MustParseMoney("400.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, "40.00", updated.InvestmentShare.FormatMajor())

		status, err := f.engine.FundingStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "700.00", status.CurrentFunding.FormatMajor())
		assert.Equal(t, "300.00", status.Remaining.FormatMajor())
		assert.Equal(t, project.StatusPartiallyFunded, status.Status)

		other, err := f.engine.GetSubscription(ctx, b.Subscription.ID)
		require.NoError(t, err)
		assert.Equal(t, "30.00", other.InvestmentShare.FormatMajor())

		res := f.subscribe(t, p.ID, "300.00")
		assert.Equal(t, project.StatusFullyFunded, res.ProjectStatus)
		assert.Equal(t, "1000.00", funding(t, f, p.ID).FormatMajor())
	})
}

func TestUpdate_SameValuesAccepted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		res := f.subscribe(t, p.ID, "250.00")

		investorID, projectID := res.Subscription.InvestorID, res.Subscription.ProjectID
		updated, err := f.engine.UpdateSubscription(context.Background(), fundraise.UpdateInput{
			SubscriptionID: res.Subscription.ID,
			Amount:         types.MustParseMoney("250.00"),
			InvestorID:     &investorID,
			ProjectID:      &projectID,
		})
		require.NoError(t, err)
		assert.Equal(t, "25.00", updated.InvestmentShare.FormatMajor())
	})
}

func TestUpdate_InvestorIsImmutable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		res := f.subscribe(t, p.ID, "250.00")

		other := f.investor(t)
		_, err := f.engine.UpdateSubscription(context.Background(), fundraise.UpdateInput{
			SubscriptionID: res.Subscription.ID,
			Amount:         types.MustParseMoney("250.00"),
			InvestorID:     &other,
		})
		var ve *fundraise.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "investor", ve.Field)
	})
}

func TestUpdate_OtherInvestorCannotSee(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		res := f.subscribe(t, p.ID, "250.00")

		_, err := f.engine.UpdateSubscription(context.Background(), fundraise.UpdateInput{
			SubscriptionID:   res.Subscription.ID,
			Amount:           types.MustParseMoney("300.00"),
			ActingInvestorID: f.investor(t),
		})
		assert.ErrorIs(t, err, fundraise.ErrSubscriptionNotFound)
	})
}

// ──────────────────────────────────────────────────
// Authority
// ──────────────────────────────────────────────────

func TestSubscribe_Validation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		inv := f.investor(t)

		tests := []struct {
			name  string
			in    fundraise.SubscribeInput
			field string
			want  error
		}{
			{"missing investor", fundraise.SubscribeInput{ProjectID: p.ID, Amount: 100}, "investor", fundraise.ErrMissingField},
			{"missing project", fundraise.SubscribeInput{InvestorID: inv, Amount: 100}, "project", fundraise.ErrMissingField},
			{"zero amount", fundraise.SubscribeInput{InvestorID: inv, ProjectID: p.ID}, "amount", fundraise.ErrInvalidAmount},
			{"negative amount", fundraise.SubscribeInput{InvestorID: inv, ProjectID: p.ID, Amount: -1}, "amount", fundraise.ErrInvalidAmount},
			{"self investment", fundraise.SubscribeInput{InvestorID: f.founder.ID, ProjectID: p.ID, Amount: 100}, "project", fundraise.ErrSelfInvestment},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.engine.Subscribe(ctx, tt.in)
				var ve *fundraise.ValidationError
				require.True(t, errors.As(err, &ve), "got %v", err)
				assert.Equal(t, tt.field, ve.Field)
				assert.ErrorIs(t, err, tt.want)
				assert.False(t, fundraise.IsCapacity(err))
			})
		}

		assert.Equal(t, "0.00", funding(t, f, p.ID).FormatMajor())
	})
}

func TestSubscribe_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")

		_, err := f.engine.Subscribe(ctx, fundraise.SubscribeInput{InvestorID: f.investor(t), ProjectID: id.NewProjectID(), Amount: 100})
		assert.ErrorIs(t, err, fundraise.ErrProjectNotFound)

		_, err = f.engine.Subscribe(ctx, fundraise.SubscribeInput{InvestorID: id.NewInvestorID(), ProjectID: p.ID, Amount: 100})
		assert.ErrorIs(t, err, fundraise.ErrInvestorNotFound)
		assert.True(t, fundraise.IsNotFound(err))
	})
}

func TestSubscribe_OnePerInvestor(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		inv := f.investor(t)

		_, err := f.engine.Subscribe(ctx, fundraise.SubscribeInput{InvestorID: inv, ProjectID: p.ID, Amount: 10000})
		require.NoError(t, err)

		_, err = f.engine.Subscribe(ctx, fundraise.SubscribeInput{InvestorID: inv, ProjectID: p.ID, Amount: 10000})
		assert.ErrorIs(t, err, fundraise.ErrSubscriptionExists)
		assert.True(t, fundraise.IsValidation(err))
		assert.Equal(t, "100.00", funding(t, f, p.ID).FormatMajor())
	})
}

func TestResolveInvestor(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	inv, err := f.engine.ResolveInvestor(ctx, f.founder.UserID)
	require.NoError(t, err)
	assert.Equal(t, f.founder.ID.String(), inv.ID.String())

	_, err = f.engine.ResolveInvestor(ctx, id.NewUserID())
	assert.True(t, fundraise.IsAuthorization(err))

	_, err = f.engine.ResolveInvestor(ctx, id.Nil)
	assert.ErrorIs(t, err, fundraise.ErrUnauthorized)
}

func TestRegisterProject_Validation(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	err := f.engine.RegisterProject(ctx, &project.Project{StartupID: f.startup.ID})
	assert.ErrorIs(t, err, fundraise.ErrInvalidGoal)

	err = f.engine.RegisterProject(ctx, &project.Project{FundingGoal: 100})
	assert.ErrorIs(t, err, fundraise.ErrMissingField)

	err = f.engine.RegisterProject(ctx, &project.Project{StartupID: id.NewStartupID(), FundingGoal: 100})
	assert.ErrorIs(t, err, fundraise.ErrStartupNotFound)

	p := &project.Project{StartupID: f.startup.ID, FundingGoal: 100, CurrentFunding: 50}
	require.NoError(t, f.engine.RegisterProject(ctx, p))
	assert.False(t, p.ID.IsNil())
	assert.True(t, p.CurrentFunding.IsZero())
}

// ──────────────────────────────────────────────────
// Concurrency
// ──────────────────────────────────────────────────

func TestSubscribe_ConcurrentOverCapacity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")
		f.subscribe(t, p.ID, "200.00")

		const n = 2
		investors := []id.InvestorID{f.investor(t), f.investor(t)}
		errs := make([]error, n)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = f.engine.Subscribe(context.Background(), fundraise.SubscribeInput{
					InvestorID: investors[i],
					ProjectID:  p.ID,
					Amount:     types.MustParseMoney("500.00"),
				})
			}(i)
		}
		close(start)
		wg.Wait()

		succeeded, rejected := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case fundraise.IsCapacity(err):
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, rejected)
		assert.Equal(t, "700.00", funding(t, f, p.ID).FormatMajor())
	})
}

func TestSubscribe_ConcurrentNeverExceedsGoal(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")

		const n = 12
		investors := make([]id.InvestorID, n)
		for i := range investors {
			investors[i] = f.investor(t)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := f.engine.Subscribe(ctx, fundraise.SubscribeInput{
					InvestorID: investors[i],
					ProjectID:  p.ID,
					Amount:     types.MustParseMoney("150.00"),
				})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				assert.True(t, fundraise.IsCapacity(err), "got %v", err)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 6, accepted)

		subs, err := f.engine.ListSubscriptions(ctx, p.ID, subscription.ListOpts{})
		require.NoError(t, err)
		amounts := make([]types.Money, len(subs))
		var shares types.Percent
		for i, s := range subs {
			amounts[i] = s.Amount
			shares += s.InvestmentShare
		}
		assert.Equal(t, "900.00", types.Sum(amounts...).FormatMajor())
		assert.Equal(t, "900.00", funding(t, f, p.ID).FormatMajor())
		assert.LessOrEqual(t, shares, types.Hundred)
	})
}

func TestSubscribe_CancelledContextWritesNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		p := f.project(t, "1000.00")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.engine.Subscribe(ctx, fundraise.SubscribeInput{
			InvestorID: f.investor(t),
			ProjectID:  p.ID,
			Amount:     types.MustParseMoney("100.00"),
		})
		require.Error(t, err)

		subs, err := f.engine.ListSubscriptions(context.Background(), p.ID, subscription.ListOpts{})
		require.NoError(t, err)
		assert.Empty(t, subs)
		assert.Equal(t, "0.00", funding(t, f, p.ID).FormatMajor())
	})
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

func TestReconcile_HealsDrift(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := &project.Project{
			Entity:         types.NewEntity(),
			ID:             id.NewProjectID(),
			StartupID:      f.startup.ID,
			FundingGoal:    types.MustParseMoney("1000.00"),
			CurrentFunding: types.MustParseMoney("500.00"),
		}
		require.NoError(t, f.store.CreateProject(ctx, p))

		report, err := f.engine.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, report.Drifted)
		assert.Equal(t, "500.00", report.CachedBefore.FormatMajor())
		assert.True(t, report.Authoritative.IsZero())
		assert.Equal(t, "0.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, 1, f.events.count("drift"))

		report, err = f.engine.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, report.Drifted)
		assert.Zero(t, report.SharesChanged)
	})
}

func TestSubscribe_UsesAuthoritativeTotal(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := &project.Project{
			Entity:         types.NewEntity(),
			ID:             id.NewProjectID(),
			StartupID:      f.startup.ID,
			FundingGoal:    types.MustParseMoney("1000.00"),
			CurrentFunding: types.MustParseMoney("1000.00"),
		}
		require.NoError(t, f.store.CreateProject(ctx, p))

		res := f.subscribe(t, p.ID, "300.00")
		assert.Equal(t, "700.00", res.RemainingFunding.FormatMajor())
		assert.Equal(t, "300.00", funding(t, f, p.ID).FormatMajor())
		assert.Equal(t, 1, f.events.count("drift"))
	})
}

func TestReconcile_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "300.00")
		f.subscribe(t, p.ID, "100.00")
		f.subscribe(t, p.ID, "100.00")
		f.subscribe(t, p.ID, "100.00")

		before, err := f.engine.ListSubscriptions(ctx, p.ID, subscription.ListOpts{})
		require.NoError(t, err)

		for range 2 {
			report, err := f.engine.Reconcile(ctx, p.ID)
			require.NoError(t, err)
			assert.Zero(t, report.SharesChanged)
			assert.False(t, report.Drifted)
		}

		after, err := f.engine.ListSubscriptions(ctx, p.ID, subscription.ListOpts{})
		require.NoError(t, err)
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].InvestmentShare, after[i].InvestmentShare)
			assert.Equal(t, "33.33", after[i].InvestmentShare.FormatMajor())
		}
	})
}

func TestReconcile_UnknownProject(t *testing.T) {
	f := newFixture(t, memory.New())
	_, err := f.engine.Reconcile(context.Background(), id.NewProjectID())
	assert.ErrorIs(t, err, fundraise.ErrProjectNotFound)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func TestListSubscriptions_Paging(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.project(t, "1000.00")
		var ids []string
		for range 5 {
			ids = append(ids, f.subscribe(t, p.ID, "10.00").Subscription.ID.String())
		}

		page, err := f.engine.ListSubscriptions(ctx, p.ID, subscription.ListOpts{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)

		all, err := f.engine.ListSubscriptions(ctx, p.ID, subscription.ListOpts{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, all[1].ID.String(), page[0].ID.String())
		assert.Equal(t, all[2].ID.String(), page[1].ID.String())
		assert.ElementsMatch(t, ids, []string{
			all[0].ID.String(), all[1].ID.String(), all[2].ID.String(), all[3].ID.String(), all[4].ID.String(),
		})

		mine, err := f.engine.ListInvestorSubscriptions(ctx, all[0].InvestorID, subscription.ListOpts{})
		require.NoError(t, err)
		require.Len(t, mine, 1)
	})
}

// ──────────────────────────────────────────────────
// Plugins
// ──────────────────────────────────────────────────

func TestPlugins_ReceiveCommittedEvents(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	p := f.project(t, "100.00")

	res := f.subscribe(t, p.ID, "40.00")
	_, err := f.engine.UpdateSubscription(ctx, fundraise.UpdateInput{
		SubscriptionID: res.Subscription.ID,
		Amount:         types.MustParseMoney("100.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.events.count("created"))
	assert.Equal(t, 1, f.events.count("updated"))
	assert.Equal(t, 2, f.events.count("changed"))
	assert.Equal(t, 1, f.events.count("funded"))
	assert.Equal(t, 2, f.events.count("shares"))
	assert.Zero(t, f.events.count("rejected"))
}
