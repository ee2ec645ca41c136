// Package users declares the user repository contract and its PostgreSQL,
// MongoDB and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// Repository persists user accounts. Email is unique across users.
type Repository interface {
	// Create stores user and returns it with ID and timestamps filled in.
	// A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByEmail and GetUserByID return common.ErrorNotFound when no
	// user matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash replaces the stored hash. Unknown ids yield
	// common.ErrorNotFound.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error

	// Delete removes the user. Unknown ids yield common.ErrorNotFound.
	Delete(ctx context.Context, id string) error
}
