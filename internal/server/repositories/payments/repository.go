// Package payments stores verified payment confirmations.
package payments

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// Repository persists verified payments. Records are immutable and the
// provider payment id is unique.
type Repository interface {
	// Create stores payment and fills in ID and CreatedAt. A repeated
	// payment id yields common.ErrorAlreadyExists.
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
}
