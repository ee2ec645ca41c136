// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token authorization and
// credential-guarded account changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RegisterInput carries the sign-up form. The list and preference fields
// are stored as given.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	WishlistItems []any
	CartItems     []any
	Addresses     []any
	Preferences   map[string]any
}

// UserService provides account operations:
// - Register: create users with a bcrypt password hash
// - Login: verify credentials and mint an access token
// - Authorize: resolve an access token to the current user record
// - DeleteUser / ChangePassword: credential-checked account changes
type UserService struct {
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user. Name, email and password are required.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" || email == "" || !validPassword(in.Password) {
		return nil, common.ErrorValidation
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.User{
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		PasswordHash:  hash,
		WishlistItems: orEmptyList(in.WishlistItems),
		CartItems:     orEmptyList(in.CartItems),
		Addresses:     orEmptyList(in.Addresses),
		Preferences:   in.Preferences,
		Orders:        []any{},
	}
	if user.Preferences == nil {
		user.Preferences = map[string]any{}
	}

	u, err := s.repomanager.Users().Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("%w: error creating user: %v", common.ErrorInternal, err)
	}
	return u, nil
}

// Login verifies the credential pair and returns a signed access token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// Authorize verifies token and re-fetches the user it names. Token errors
// (ErrMissingToken, ErrTokenExpired, ErrInvalidToken) are returned as-is; a
// user deleted after the token was issued yields ErrorUnauthorized.
func (s *UserService) Authorize(ctx context.Context, token string) (*models.User, error) {
	identity, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users().GetUserByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}

// DeleteUser removes the account matching the credential pair.
func (s *UserService) DeleteUser(ctx context.Context, email, password string) error {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return err
	}

	if err := s.repomanager.Users().Delete(ctx, user.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}

// ChangePassword replaces the password of the account matching the
// credential pair.
func (s *UserService) ChangePassword(ctx context.Context, email, password, newPassword string) error {
	if !validPassword(newPassword) {
		return common.ErrorValidation
	}

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := s.repomanager.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}

// --- helpers below ---

// authenticate looks the user up by email and checks the password. Unknown
// emails still pay for a bcrypt comparison so both failures take similar time.
func (s *UserService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !validPassword(password) {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = auth.CheckPassword(dummyHash(), password)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// bcrypt only considers the first 72 bytes.
const maxPasswordBytes = 72

func validPassword(p string) bool {
	return p != "" && len(p) <= maxPasswordBytes
}

func orEmptyList(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue string
)

func dummyHash() string {
	dummyHashOnce.Do(func() {
		dummyHashValue, _ = auth.HashPassword(uuid.NewString())
	})
	return dummyHashValue
}
