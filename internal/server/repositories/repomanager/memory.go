package repomanager

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/server/repositories/payments"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps all data in process memory. Data is lost
// on restart.
type MemoryRepositoryManager struct {
	users    *users.MemoryRepository
	payments *payments.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		payments: payments.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(ctx context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close(ctx context.Context) error         { return nil }

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Payments() payments.Repository {
	return m.payments
}
