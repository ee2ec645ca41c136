// Package payments verifies payment-provider callbacks. A callback is
// trusted only if its signature equals the hex HMAC-SHA256 of
// "order_id|payment_id" keyed with the shared key secret.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const separator = "|"

// Sign returns the lowercase hex HMAC-SHA256 signature the provider is
// expected to send for orderID and paymentID.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + separator + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates orderID and
// paymentID under secret. The comparison is constant-time. Any empty
// input yields false.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}

	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
