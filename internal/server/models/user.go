// Package models defines server-side data models persisted by the
// repositories and returned by the HTTP API.
package models

import "time"

// User is a customer account. PasswordHash is a bcrypt hash and is never
// serialized. The list and preference fields are opaque client documents
// that the server stores and returns as-is.
type User struct {
	ID            string         `json:"_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	WishlistItems []any          `json:"wishlistItems"`
	CartItems     []any          `json:"cartItems"`
	Addresses     []any          `json:"addresses"`
	Preferences   map[string]any `json:"preferences"`
	Orders        []any          `json:"orders"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
