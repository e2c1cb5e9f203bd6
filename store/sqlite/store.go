// Package sqlite implements store.Store on SQLite through modernc.org/sqlite.
//
// SQLite has no row locks. InProjectTx opens a BEGIN IMMEDIATE transaction,
// which takes the database write lock up front, and the pool is limited to
// one connection so writers queue on it in order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

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

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New wraps an existing handle. The handle must have been opened with
// _txlock=immediate for InProjectTx to serialize writers; Open does this.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database file at path with the pragmas the store relies on.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("fundraise/sqlite: storage path is required")
	}

	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("fundraise/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("fundraise/sqlite: ping: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate(ctx, s.db); err != nil {
		return fmt.Errorf("fundraise/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Project Store ====================

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fundraise_projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.StartupID, m.Name, m.FundingGoal, m.CurrentFunding, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fundraise.ErrProjectExists
	}
	if err != nil {
		return fmt.Errorf("fundraise/sqlite: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	return getProject(ctx, s.db, projectID)
}

// ==================== Subscription Store ====================

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE id = ?`, subID.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/sqlite: get subscription: %w", err)
	}
	return sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, projectID id.ProjectID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	q, args := paged(`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = ? ORDER BY created_at ASC, id ASC`,
		opts, projectID.String())
	return querySubscriptions(ctx, s.db, q, args...)
}

func (s *Store) ListInvestorSubscriptions(ctx context.Context, investorID id.InvestorID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	q, args := paged(`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE investor_id = ? ORDER BY created_at ASC, id ASC`,
		opts, investorID.String())
	return querySubscriptions(ctx, s.db, q, args...)
}

// ==================== Locked transactions ====================

// InProjectTx runs fn inside a BEGIN IMMEDIATE transaction.
func (s *Store) InProjectTx(ctx context.Context, projectID id.ProjectID, fn fundraisestore.TxFunc) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fundraise/sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	p, err := getProject(ctx, sqlTx, projectID)
	if err != nil {
		return err
	}

	if err = fn(ctx, &tx{tx: sqlTx, project: p.ID}, p); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("fundraise/sqlite: commit: %w", err)
	}
	return nil
}

// tx scopes writes to one locked project.
type tx struct {
	tx      *sql.Tx
	project id.ProjectID
}

func (t *tx) SumAmounts(ctx context.Context, exclude id.SubscriptionID) (types.Money, error) {
	var total int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM fundraise_subscriptions WHERE project_id = ? AND id <> ?`,
		t.project.String(), exclude.String(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fundraise/sqlite: sum amounts: %w", err)
	}
	return types.Cents(total), nil
}

func (t *tx) ListSubscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	return querySubscriptions(ctx, t.tx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = ? ORDER BY created_at ASC, id ASC`,
		t.project.String(),
	)
}

func (t *tx) FindByInvestor(ctx context.Context, investorID id.InvestorID) (*subscription.Subscription, error) {
	sub, err := scanSubscription(t.tx.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = ? AND investor_id = ?`,
		t.project.String(), investorID.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/sqlite: find by investor: %w", err)
	}
	return sub, nil
}

func (t *tx) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := scanSubscription(t.tx.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM fundraise_subscriptions WHERE project_id = ? AND id = ?`,
		t.project.String(), subID.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/sqlite: get subscription: %w", err)
	}
	return sub, nil
}

func (t *tx) InsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO fundraise_subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.InvestorID, t.project.String(), m.Amount, m.InvestmentShare, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", fundraise.ErrIntegrity, err)
	}
	if err != nil {
		return fmt.Errorf("fundraise/sqlite: insert subscription: %w", err)
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
	res, err := t.tx.ExecContext(ctx,
		`UPDATE fundraise_subscriptions SET `+column+` = ?, updated_at = ? WHERE project_id = ? AND id = ?`,
		value, toMillis(time.Now()), t.project.String(), subID.String(),
	)
	if err != nil {
		return fmt.Errorf("fundraise/sqlite: update %s: %w", column, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fundraise.ErrSubscriptionNotFound
	}
	return nil
}

func (t *tx) SetCurrentFunding(ctx context.Context, total types.Money) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE fundraise_projects SET current_funding = ?, updated_at = ? WHERE id = ?`,
		total.Cents(), toMillis(time.Now()), t.project.String(),
	)
	if err != nil {
		return fmt.Errorf("fundraise/sqlite: set current funding: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProject(ctx context.Context, q querier, projectID id.ProjectID) (*project.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM fundraise_projects WHERE id = ?`, projectID.String(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fundraise.ErrProjectNotFound
		}
		return nil, fmt.Errorf("fundraise/sqlite: get project: %w", err)
	}
	return p, nil
}

func querySubscriptions(ctx context.Context, q querier, query string, args ...any) ([]*subscription.Subscription, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fundraise/sqlite: list subscriptions: %w", err)
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

func paged(query string, opts subscription.ListOpts, args ...any) (string, []any) {
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}
	return query, args
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
