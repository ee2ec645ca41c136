package payments

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps payments in process memory, keyed by payment id.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]models.Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.Payment)}
}

func (r *MemoryRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[payment.PaymentID]; ok {
		return nil, common.ErrorAlreadyExists
	}

	payment.ID = uuid.NewString()
	payment.CreatedAt = time.Now().UTC()
	r.items[payment.PaymentID] = *payment

	return payment, nil
}

func (r *MemoryRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[paymentID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}
