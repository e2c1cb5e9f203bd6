package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/store/sqlite"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "fundraise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProject(t *testing.T, s *sqlite.Store, goal string) *project.Project {
	t.Helper()
	p := &project.Project{
		Entity:      types.NewEntity(),
		ID:          id.NewProjectID(),
		StartupID:   id.NewStartupID(),
		Name:        "Seed",
		FundingGoal: types.MustParseMoney(goal),
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func newSub(projectID id.ProjectID, amount string) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:     types.NewEntity(),
		ID:         id.NewSubscriptionID(),
		InvestorID: id.NewInvestorID(),
		ProjectID:  projectID,
		Amount:     types.MustParseMoney(amount),
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	require.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestProject_RoundTrip(t *testing.T) {
	s := openStore(t)
	p := seedProject(t, s, "1234.56")

	got, err := s.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), got.ID.String())
	assert.Equal(t, p.StartupID.String(), got.StartupID.String())
	assert.Equal(t, "1234.56", got.FundingGoal.FormatMajor())

	assert.ErrorIs(t, s.CreateProject(context.Background(), p), fundraise.ErrProjectExists)

	_, err = s.GetProject(context.Background(), id.NewProjectID())
	assert.ErrorIs(t, err, fundraise.ErrProjectNotFound)
}

func TestInProjectTx_Commit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "1000.00")
	sub := newSub(p.ID, "200.00")

	err := s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, locked *project.Project) error {
		assert.Equal(t, p.ID.String(), locked.ID.String())
		require.NoError(t, tx.InsertSubscription(ctx, sub))
		require.NoError(t, tx.UpdateShare(ctx, sub.ID, types.Percent(2000)))
		return tx.SetCurrentFunding(ctx, sub.Amount)
	})
	require.NoError(t, err)

	got, err := s.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", got.Amount.FormatMajor())
	assert.Equal(t, "20.00", got.InvestmentShare.FormatMajor())

	stored, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", stored.CurrentFunding.FormatMajor())
}

func TestInProjectTx_Rollback(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "1000.00")
	abort := errors.New("abort")

	err := s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, _ *project.Project) error {
		require.NoError(t, tx.InsertSubscription(ctx, newSub(p.ID, "50.00")))
		return abort
	})
	require.ErrorIs(t, err, abort)

	subs, err := s.ListSubscriptions(ctx, p.ID, subscription.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestInProjectTx_UniqueInvestorPerProject(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "1000.00")
	first := newSub(p.ID, "10.00")

	err := s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, _ *project.Project) error {
		return tx.InsertSubscription(ctx, first)
	})
	require.NoError(t, err)

	err = s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, _ *project.Project) error {
		dup := newSub(p.ID, "20.00")
		dup.InvestorID = first.InvestorID
		return tx.InsertSubscription(ctx, dup)
	})
	assert.ErrorIs(t, err, fundraise.ErrIntegrity)
}

func TestTx_SumAndUpdate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "1000.00")
	a, b := newSub(p.ID, "100.00"), newSub(p.ID, "300.00")

	err := s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, _ *project.Project) error {
		require.NoError(t, tx.InsertSubscription(ctx, a))
		require.NoError(t, tx.InsertSubscription(ctx, b))

		total, err := tx.SumAmounts(ctx, id.Nil)
		require.NoError(t, err)
		assert.Equal(t, "400.00", total.FormatMajor())

		without, err := tx.SumAmounts(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "300.00", without.FormatMajor())

		require.NoError(t, tx.UpdateAmount(ctx, a.ID, types.MustParseMoney("150.00")))
		found, err := tx.FindByInvestor(ctx, a.InvestorID)
		require.NoError(t, err)
		assert.Equal(t, "150.00", found.Amount.FormatMajor())

		assert.ErrorIs(t, tx.UpdateAmount(ctx, id.NewSubscriptionID(), 1), fundraise.ErrSubscriptionNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestListSubscriptions_Paging(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "1000.00")

	err := s.InProjectTx(ctx, p.ID, func(ctx context.Context, tx store.Tx, _ *project.Project) error {
		for range 5 {
			if err := tx.InsertSubscription(ctx, newSub(p.ID, "1.00")); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	page, err := s.ListSubscriptions(ctx, p.ID, subscription.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.ListSubscriptions(ctx, p.ID, subscription.ListOpts{Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
