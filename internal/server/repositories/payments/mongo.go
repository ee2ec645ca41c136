package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the MongoDB collection holding payment documents.
const CollectionName = "payments"

type paymentDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	OrderID   string        `bson:"razorpay_order_id"`
	PaymentID string        `bson:"razorpay_payment_id"`
	Signature string        `bson:"razorpay_signature"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique payment id index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "razorpay_payment_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("payments_payment_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	doc := paymentDocument{
		ID:        bson.NewObjectID(),
		OrderID:   payment.OrderID,
		PaymentID: payment.PaymentID,
		Signature: payment.Signature,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, mapMongoError(err)
	}

	payment.ID = doc.ID.Hex()
	payment.CreatedAt = doc.CreatedAt
	return payment, nil
}

func (r *MongoRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	var doc paymentDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "razorpay_payment_id", Value: paymentID}}).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return toModel(&doc), nil
}

func toModel(d *paymentDocument) *models.Payment {
	return &models.Payment{
		ID:        d.ID.Hex(),
		OrderID:   d.OrderID,
		PaymentID: d.PaymentID,
		Signature: d.Signature,
		CreatedAt: d.CreatedAt,
	}
}

func mapMongoError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrorNotFound
	case mongo.IsDuplicateKeyError(err):
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
