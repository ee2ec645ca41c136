package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

const userColumns = `id, name, email, password_hash, wishlist_items, cart_items, addresses, preferences, orders, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	docs, err := marshalDocuments(user)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (name, email, password_hash, wishlist_items, cart_items, addresses, preferences, orders)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash,
		docs.wishlist, docs.cart, docs.addresses, docs.preferences, docs.orders,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	var docs documents

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&docs.wishlist, &docs.cart, &docs.addresses, &docs.preferences, &docs.orders,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		// a malformed uuid cannot match any row
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := docs.unmarshalInto(user); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsInvalidText(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// documents holds the jsonb columns in their wire form.
type documents struct {
	wishlist, cart, addresses, preferences, orders []byte
}

func marshalDocuments(u *models.User) (documents, error) {
	var (
		d   documents
		err error
	)
	if d.wishlist, err = marshalList(u.WishlistItems); err != nil {
		return d, err
	}
	if d.cart, err = marshalList(u.CartItems); err != nil {
		return d, err
	}
	if d.addresses, err = marshalList(u.Addresses); err != nil {
		return d, err
	}
	if d.orders, err = marshalList(u.Orders); err != nil {
		return d, err
	}
	if u.Preferences == nil {
		d.preferences = []byte("{}")
	} else if d.preferences, err = json.Marshal(u.Preferences); err != nil {
		return d, fmt.Errorf("marshal preferences: %w", err)
	}
	return d, nil
}

func marshalList(v []any) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	return b, nil
}

func (d documents) unmarshalInto(u *models.User) error {
	targets := []struct {
		raw []byte
		dst any
	}{
		{d.wishlist, &u.WishlistItems},
		{d.cart, &u.CartItems},
		{d.addresses, &u.Addresses},
		{d.preferences, &u.Preferences},
		{d.orders, &u.Orders},
	}
	for _, t := range targets {
		if len(t.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(t.raw, t.dst); err != nil {
			return err
		}
	}
	return nil
}
