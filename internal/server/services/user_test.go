package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/payments"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		PaymentSecret:               "s3cret",
	}
}

func newUserService(t *testing.T) (*UserService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	return NewUserService(rm, testConfig()), rm
}

func register(t *testing.T, s *UserService, email, password string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{Name: "Alice", Email: email, Password: password})
	require.NoError(t, err)
	return u
}

// fakeUsersRepo fails every call with err.
type fakeUsersRepo struct{ err error }

func (f fakeUsersRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}
func (f fakeUsersRepo) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f fakeUsersRepo) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f fakeUsersRepo) UpdatePasswordHash(context.Context, string, string) error { return f.err }
func (f fakeUsersRepo) Delete(context.Context, string) error                     { return f.err }

type fakeRepoManager struct {
	u users.Repository
	p payments.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) Ping(context.Context) error          { return nil }
func (m *fakeRepoManager) Close(context.Context) error         { return nil }
func (m *fakeRepoManager) Users() users.Repository             { return m.u }
func (m *fakeRepoManager) Payments() payments.Repository       { return m.p }

// --- Register ---

func TestRegister_StoresHashAndNormalizesEmail(t *testing.T) {
	s, rm := newUserService(t)

	u, err := s.Register(context.Background(), RegisterInput{
		Name:        " Alice ",
		Email:       "  Alice@Example.COM ",
		Password:    "pw",
		CartItems:   []any{"sku-1"},
		Preferences: map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "pw", u.PasswordHash)

	stored, err := rm.Users().GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	ok, err := auth.CheckPassword(stored.PasswordHash, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []any{"sku-1"}, stored.CartItems)
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newUserService(t)

	cases := []RegisterInput{
		{Name: "", Email: "a@b.com", Password: "pw"},
		{Name: "A", Email: " ", Password: "pw"},
		{Name: "A", Email: "a@b.com", Password: ""},
		{Name: "A", Email: "a@b.com", Password: strings.Repeat("x", 73)},
	}
	for _, in := range cases {
		_, err := s.Register(context.Background(), in)
		assert.ErrorIs(t, err, common.ErrorValidation, "input %+v", in)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newUserService(t)
	register(t, s, "a@b.com", "pw")

	_, err := s.Register(context.Background(), RegisterInput{Name: "B", Email: "A@B.com", Password: "other"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_StoreFailure(t *testing.T) {
	s := NewUserService(&fakeRepoManager{u: fakeUsersRepo{err: errors.New("db error: down")}}, testConfig())

	_, err := s.Register(context.Background(), RegisterInput{Name: "A", Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, common.ErrorInternal)
}

// --- Login / Authorize ---

func TestLogin_Success_TokenRoundTrips(t *testing.T) {
	s, _ := newUserService(t)
	u := register(t, s, "a@b.com", "pw")

	token, err := s.Login(context.Background(), "A@B.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := auth.ParseToken(token, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "a@b.com", id.Email)

	got, err := s.Authorize(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestLogin_Failures(t *testing.T) {
	s, _ := newUserService(t)
	register(t, s, "a@b.com", "pw")

	for _, tc := range []struct{ email, password string }{
		{"a@b.com", "wrong"},
		{"ghost@b.com", "pw"},
		{"", "pw"},
		{"a@b.com", ""},
	} {
		_, err := s.Login(context.Background(), tc.email, tc.password)
		assert.ErrorIs(t, err, common.ErrorUnauthorized, "%+v", tc)
	}
}

func TestLogin_StoreFailure(t *testing.T) {
	s := NewUserService(&fakeRepoManager{u: fakeUsersRepo{err: errors.New("db error: down")}}, testConfig())

	_, err := s.Login(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAuthorize_TokenErrorsPassThrough(t *testing.T) {
	s, _ := newUserService(t)
	u := register(t, s, "a@b.com", "pw")

	_, err := s.Authorize(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = s.Authorize(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	foreign, err := auth.GenerateToken(u.ID, u.Email, []byte("other-secret"), time.Hour)
	require.NoError(t, err)
	_, err = s.Authorize(context.Background(), foreign)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	expired, err := auth.GenerateToken(u.ID, u.Email, []byte("k"), -time.Minute)
	require.NoError(t, err)
	_, err = s.Authorize(context.Background(), expired)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestAuthorize_DeletedUser(t *testing.T) {
	s, _ := newUserService(t)
	register(t, s, "a@b.com", "pw")

	token, err := s.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(context.Background(), "a@b.com", "pw"))

	_, err = s.Authorize(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

// --- DeleteUser / ChangePassword ---

func TestDeleteUser_WrongPasswordKeepsAccount(t *testing.T) {
	s, rm := newUserService(t)
	register(t, s, "a@b.com", "pw")

	err := s.DeleteUser(context.Background(), "a@b.com", "nope")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = rm.Users().GetUserByEmail(context.Background(), "a@b.com")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	s, _ := newUserService(t)
	register(t, s, "a@b.com", "pw")

	assert.ErrorIs(t, s.ChangePassword(context.Background(), "a@b.com", "pw", ""), common.ErrorValidation)
	assert.ErrorIs(t, s.ChangePassword(context.Background(), "a@b.com", "bad", "new"), common.ErrorUnauthorized)

	require.NoError(t, s.ChangePassword(context.Background(), "a@b.com", "pw", "new"))

	_, err := s.Login(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.Login(context.Background(), "a@b.com", "new")
	assert.NoError(t, err)
}
