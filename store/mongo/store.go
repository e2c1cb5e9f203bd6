// Package mongo implements store.Store on MongoDB.
//
// InProjectTx runs a session transaction whose first write increments the
// project document's lock_version. That write takes the document lock, so
// a second transaction on the same project conflicts and is retried by the
// driver against fresh data once the first commits. Transactions need a
// replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	fundraisestore "github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

const (
	colProjects      = "fundraise_projects"
	colSubscriptions = "fundraise_subscriptions"
)

// compile-time interface checks
var (
	_ fundraisestore.Store = (*Store)(nil)
	_ fundraisestore.Tx    = (*tx)(nil)
)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps a connected client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("fundraise/mongo: connect: %w", err)
	}
	s := New(client, database)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("fundraise/mongo: ping: %w", err)
	}
	return s, nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all fundraise collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("fundraise/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Project Store ====================

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	_, err := s.db.Collection(colProjects).InsertOne(ctx, toProjectModel(p))
	if mongo.IsDuplicateKeyError(err) {
		return fundraise.ErrProjectExists
	}
	if err != nil {
		return fmt.Errorf("fundraise/mongo: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	var m projectModel
	err := s.db.Collection(colProjects).FindOne(ctx, bson.M{"_id": projectID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fundraise.ErrProjectNotFound
		}
		return nil, fmt.Errorf("fundraise/mongo: get project: %w", err)
	}
	return fromProjectModel(&m)
}

// ==================== Subscription Store ====================

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.db.Collection(colSubscriptions).FindOne(ctx, bson.M{"_id": subID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, projectID id.ProjectID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return findSubscriptions(ctx, s.db.Collection(colSubscriptions), bson.M{"project_id": projectID.String()}, opts)
}

func (s *Store) ListInvestorSubscriptions(ctx context.Context, investorID id.InvestorID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return findSubscriptions(ctx, s.db.Collection(colSubscriptions), bson.M{"investor_id": investorID.String()}, opts)
}

// ==================== Locked transactions ====================

// InProjectTx runs fn inside a session transaction that owns the project
// document's write lock. fn may run more than once when the driver retries
// a transient conflict; each run sees freshly read data.
func (s *Store) InProjectTx(ctx context.Context, projectID id.ProjectID, fn fundraisestore.TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("fundraise/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		p, err := s.lockProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, &tx{db: s.db, project: p.ID}, p)
	})
	return err
}

// lockProject bumps lock_version and returns the project as seen after
// the bump.
func (s *Store) lockProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	var m projectModel
	err := s.db.Collection(colProjects).FindOneAndUpdate(ctx,
		bson.M{"_id": projectID.String()},
		bson.M{"$inc": bson.M{"lock_version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fundraise.ErrProjectNotFound
		}
		return nil, fmt.Errorf("fundraise/mongo: lock project: %w", err)
	}
	return fromProjectModel(&m)
}

// tx scopes writes to one locked project. Every call must use the ctx
// handed to the transaction body so it runs inside the session.
type tx struct {
	db      *mongo.Database
	project id.ProjectID
}

func (t *tx) subscriptions() *mongo.Collection { return t.db.Collection(colSubscriptions) }

func (t *tx) SumAmounts(ctx context.Context, exclude id.SubscriptionID) (types.Money, error) {
	match := bson.M{"project_id": t.project.String()}
	if !exclude.IsNil() {
		match["_id"] = bson.M{"$ne": exclude.String()}
	}

	cur, err := t.subscriptions().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("fundraise/mongo: sum amounts: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("fundraise/mongo: sum amounts: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return types.Cents(out[0].Total), nil
}

func (t *tx) ListSubscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	return findSubscriptions(ctx, t.subscriptions(), bson.M{"project_id": t.project.String()}, subscription.ListOpts{})
}

func (t *tx) FindByInvestor(ctx context.Context, investorID id.InvestorID) (*subscription.Subscription, error) {
	return t.findOne(ctx, bson.M{"project_id": t.project.String(), "investor_id": investorID.String()})
}

func (t *tx) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return t.findOne(ctx, bson.M{"project_id": t.project.String(), "_id": subID.String()})
}

func (t *tx) findOne(ctx context.Context, filter bson.M) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := t.subscriptions().FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, fundraise.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fundraise/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (t *tx) InsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.ProjectID = t.project.String()
	_, err := t.subscriptions().InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", fundraise.ErrIntegrity, err)
	}
	if err != nil {
		return fmt.Errorf("fundraise/mongo: insert subscription: %w", err)
	}
	return nil
}

func (t *tx) UpdateAmount(ctx context.Context, subID id.SubscriptionID, amount types.Money) error {
	return t.updateSubscription(ctx, subID, bson.M{"amount": amount.Cents()})
}

func (t *tx) UpdateShare(ctx context.Context, subID id.SubscriptionID, share types.Percent) error {
	return t.updateSubscription(ctx, subID, bson.M{"investment_share": share.Hundredths()})
}

func (t *tx) updateSubscription(ctx context.Context, subID id.SubscriptionID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := t.subscriptions().UpdateOne(ctx,
		bson.M{"_id": subID.String(), "project_id": t.project.String()},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("fundraise/mongo: update subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return fundraise.ErrSubscriptionNotFound
	}
	return nil
}

func (t *tx) SetCurrentFunding(ctx context.Context, total types.Money) error {
	_, err := t.db.Collection(colProjects).UpdateOne(ctx,
		bson.M{"_id": t.project.String()},
		bson.M{"$set": bson.M{"current_funding": total.Cents(), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("fundraise/mongo: set current funding: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

func findSubscriptions(ctx context.Context, col *mongo.Collection, filter bson.M, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("fundraise/mongo: list subscriptions: %w", err)
	}
	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("fundraise/mongo: list subscriptions: %w", err)
	}
	return fromSubscriptionModels(models)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all fundraise collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProjects: {
			{Keys: bson.D{{Key: "startup_id", Value: 1}}},
		},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "investor_id", Value: 1}, {Key: "project_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "investor_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
