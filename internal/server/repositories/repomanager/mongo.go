package repomanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/server/repositories/payments"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/users"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// MongoOptions configures the MongoDB connection. Zero values fall back to
// the defaults below.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

const (
	defaultMongoConnectTimeout = 10 * time.Second
	defaultMongoRetryAttempts  = 3
	defaultMongoRetryInterval  = 2 * time.Second
)

func (o MongoOptions) withDefaults() MongoOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultMongoConnectTimeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = defaultMongoRetryAttempts
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultMongoRetryInterval
	}
	return o
}

// MongoRepositoryManager vends MongoDB-backed repositories sharing one client.
type MongoRepositoryManager struct {
	client   *mongo.Client
	users    *users.MongoRepository
	payments *payments.MongoRepository
}

// NewMongoRepositoryManager connects to MongoDB, retrying up to
// opts.RetryAttempts times until a ping succeeds.
func NewMongoRepositoryManager(ctx context.Context, opts MongoOptions) (*MongoRepositoryManager, error) {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := range opts.RetryAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
			case <-time.After(opts.RetryInterval):
			}
		}

		client, err := mongo.Connect(
			options.Client().
				ApplyURI(opts.URI).
				SetConnectTimeout(opts.ConnectTimeout).
				SetServerSelectionTimeout(opts.ConnectTimeout),
		)
		if err != nil {
			lastErr = err
			continue
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			lastErr = err
			_ = client.Disconnect(context.Background())
			continue
		}

		db := client.Database(opts.Database)
		return &MongoRepositoryManager{
			client:   client,
			users:    users.NewMongoRepository(db),
			payments: payments.NewMongoRepository(db),
		}, nil
	}

	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

func (m *MongoRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MongoRepositoryManager) Payments() payments.Repository {
	return m.payments
}

// RunMigrations creates the unique indexes the repositories rely on.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := m.payments.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("payments indexes: %w", err)
	}
	return nil
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
