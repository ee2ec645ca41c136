package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/payments"
	"github.com/dmitrijs2005/storefront/internal/server/receipts"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/repomanager"
)

// PaymentConfirmation is the payment provider's checkout callback.
type PaymentConfirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentService verifies provider signatures and records genuine payments.
type PaymentService struct {
	repomanager repomanager.RepositoryManager
	archiver    receipts.Archiver
	logger      logging.Logger
	secret      string
}

func NewPaymentService(m repomanager.RepositoryManager, archiver receipts.Archiver, cfg *config.Config, logger logging.Logger) *PaymentService {
	if archiver == nil {
		archiver = receipts.Nop{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &PaymentService{
		repomanager: m,
		archiver:    archiver,
		logger:      logger,
		secret:      cfg.PaymentSecret,
	}
}

// VerifyPayment checks the confirmation signature and persists the payment
// only when it matches. A forged signature yields ErrSignatureMismatch.
// Resending an already recorded confirmation returns the stored record; a
// payment id recorded against another order yields ErrorAlreadyExists.
// Archiving the receipt is best-effort.
func (s *PaymentService) VerifyPayment(ctx context.Context, in PaymentConfirmation) (*models.Payment, error) {
	if !payments.VerifySignature(in.OrderID, in.PaymentID, in.Signature, s.secret) {
		return nil, common.ErrSignatureMismatch
	}

	p, err := s.repomanager.Payments().Create(ctx, &models.Payment{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return s.replayed(ctx, in)
		}
		return nil, fmt.Errorf("%w: error saving payment: %v", common.ErrorInternal, err)
	}

	if err := s.archiver.Archive(ctx, p); err != nil {
		s.logger.Warn(ctx, "receipt archive failed", "payment_id", p.PaymentID, "error", err)
	}

	return p, nil
}

// replayed resolves a payment id collision against the stored record.
// The receipt was archived on first delivery and is not sent again.
func (s *PaymentService) replayed(ctx context.Context, in PaymentConfirmation) (*models.Payment, error) {
	stored, err := s.repomanager.Payments().GetByPaymentID(ctx, in.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: error loading payment: %v", common.ErrorInternal, err)
	}

	if stored.OrderID != in.OrderID || stored.Signature != in.Signature {
		return nil, common.ErrorAlreadyExists
	}

	s.logger.Info(ctx, "payment confirmation replayed", "payment_id", stored.PaymentID)
	return stored, nil
}
