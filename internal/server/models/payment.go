package models

import "time"

// Payment is an authenticated payment-provider confirmation. Records are
// written once and never updated.
type Payment struct {
	ID        string    `json:"_id"`
	OrderID   string    `json:"razorpay_order_id"`
	PaymentID string    `json:"razorpay_payment_id"`
	Signature string    `json:"razorpay_signature"`
	CreatedAt time.Time `json:"createdAt"`
}
