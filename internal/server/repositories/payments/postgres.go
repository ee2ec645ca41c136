package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	query :=
		`INSERT INTO payments (razorpay_order_id, razorpay_payment_id, razorpay_signature)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		payment.OrderID, payment.PaymentID, payment.Signature).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return payment, nil
}

func (r *PostgresRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	query :=
		`SELECT id, razorpay_order_id, razorpay_payment_id, razorpay_signature, created_at FROM payments
		 WHERE razorpay_payment_id = $1
		 `

	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.Signature, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
