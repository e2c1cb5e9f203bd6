// Package postgres implements store.Store on PostgreSQL through pgx.
//
// InProjectTx takes a row lock with SELECT ... FOR UPDATE on the project,
// so writers to the same project queue while other projects proceed.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	fundraisestore "github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// compile-time interface checks
var (
	_ fundraisestore.Store = (*Store)(nil)
	_ fundraisestore.Tx    = (*tx)(nil)
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("fundraise/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("fundraise/postgres: ping: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("fundraise/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Project Store ====================

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fundraise_projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.StartupID, m.Name, m.FundingGoal, m.CurrentFunding, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fundraise.ErrProjectExists
	}
	if err != nil {
		return fmt.Errorf("fundraise/postgres: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	return getProject(ctx, s.pool, projectID, "")
}

// ==================== Subscription Store ====================

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE id = $1`, subID.String(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/postgres: get subscription: %w", err)
	}
	return sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, projectID id.ProjectID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return querySubscriptions(ctx, s.pool,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = $1
		 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		projectID.String(), limit(opts), max(opts.Offset, 0),
	)
}

func (s *Store) ListInvestorSubscriptions(ctx context.Context, investorID id.InvestorID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return querySubscriptions(ctx, s.pool,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE investor_id = $1
		 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		investorID.String(), limit(opts), max(opts.Offset, 0),
	)
}

// ==================== Locked transactions ====================

// InProjectTx runs fn in a read-committed transaction holding the
// project's row lock.
func (s *Store) InProjectTx(ctx context.Context, projectID id.ProjectID, fn fundraisestore.TxFunc) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("fundraise/postgres: begin: %w", err)
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck // no-op after commit

	p, err := getProject(ctx, pgTx, projectID, " FOR UPDATE")
	if err != nil {
		return err
	}

	if err := fn(ctx, &tx{tx: pgTx, project: p.ID}, p); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("fundraise/postgres: commit: %w", err)
	}
	return nil
}

// tx scopes writes to one locked project.
type tx struct {
	tx      pgx.Tx
	project id.ProjectID
}

func (t *tx) SumAmounts(ctx context.Context, exclude id.SubscriptionID) (types.Money, error) {
	var total int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT FROM fundraise_subscriptions WHERE project_id = $1 AND id <> $2`,
		t.project.String(), exclude.String(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fundraise/postgres: sum amounts: %w", err)
	}
	return types.Cents(total), nil
}

func (t *tx) ListSubscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	return querySubscriptions(ctx, t.tx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = $1 ORDER BY created_at ASC, id ASC`,
		t.project.String(),
	)
}

func (t *tx) FindByInvestor(ctx context.Context, investorID id.InvestorID) (*subscription.Subscription, error) {
	return t.getOne(ctx, `investor_id = $2`, investorID.String())
}

func (t *tx) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return t.getOne(ctx, `id = $2`, subID.String())
}

func (t *tx) getOne(ctx context.Context, cond string, arg string) (*subscription.Subscription, error) {
	sub, err := scanSubscription(t.tx.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = $1 AND `+cond,
		t.project.String(), arg,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/postgres: get subscription: %w", err)
	}
	return sub, nil
}

func (t *tx) InsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := t.tx.Exec(ctx,
		`INSERT INTO fundraise_subscriptions (`+subscriptionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.InvestorID, t.project.String(), m.Amount, m.InvestmentShare, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", fundraise.ErrIntegrity, err)
	}
	if err != nil {
		return fmt.Errorf("fundraise/postgres: insert subscription: %w", err)
	}
	return nil
}

func (t *tx) UpdateAmount(ctx context.Context, subID id.SubscriptionID, amount types.Money) error {
	return t.updateSubscription(ctx, "amount", subID, amount.Cents())
}

func (t *tx) UpdateShare(ctx context.Context, subID id.SubscriptionID, share types.Percent) error {
	return t.updateSubscription(ctx, "investment_share", subID, share.Hundredths())
}

func (t *tx) updateSubscription(ctx context.Context, column string, subID id.SubscriptionID, value int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE fundraise_subscriptions SET `+column+` = $1, updated_at = NOW() WHERE project_id = $2 AND id = $3`,
		value, t.project.String(), subID.String(),
	)
	if err != nil {
		return fmt.Errorf("fundraise/postgres: update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fundraise.ErrSubscriptionNotFound
	}
	return nil
}

func (t *tx) SetCurrentFunding(ctx context.Context, total types.Money) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE fundraise_projects SET current_funding = $1, updated_at = NOW() WHERE id = $2`,
		total.Cents(), t.project.String(),
	)
	if err != nil {
		return fmt.Errorf("fundraise/postgres: set current funding: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getProject(ctx context.Context, q querier, projectID id.ProjectID, suffix string) (*project.Project, error) {
	p, err := scanProject(q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM fundraise_projects WHERE id = $1`+suffix, projectID.String(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fundraise.ErrProjectNotFound
		}
		return nil, fmt.Errorf("fundraise/postgres: get project: %w", err)
	}
	return p, nil
}

func querySubscriptions(ctx context.Context, q querier, sql string, args ...any) ([]*subscription.Subscription, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fundraise/postgres: list subscriptions: %w", err)
	}
	defer rows.Close()

	var result []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// limit maps a zero limit to NULL, which Postgres treats as no limit.
func limit(opts subscription.ListOpts) *int {
	if opts.Limit <= 0 {
		return nil
	}
	return &opts.Limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
