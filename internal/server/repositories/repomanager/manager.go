package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/payments"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/users"
)

// RepositoryManager owns a storage backend and vends the repositories
// built on top of it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Payments() payments.Repository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// New builds the RepositoryManager selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		m, err := NewPostgresRepositoryManager(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.StorageDriverMongo:
		m, err := NewMongoRepositoryManager(ctx, MongoOptions{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.StorageDriverMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
