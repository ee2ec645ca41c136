package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/payments"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/storefront/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSecret        = "k"
	testPaymentSecret = "s3cret"
)

// --- helpers ---

func testOptions() Options {
	return Options{
		Address:         "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		LoginRateLimit:  1000,
		LoginRateBurst:  1000,
	}
}

func newTestServer(t *testing.T, opts Options) (*HTTPServer, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                   testSecret,
		AccessTokenValidityDuration: time.Hour,
		PaymentSecret:               testPaymentSecret,
	}
	rm := repomanager.NewMemoryRepositoryManager()
	us := services.NewUserService(rm, cfg)
	ps := services.NewPaymentService(rm, nil, cfg, logging.Nop())
	return NewHTTPServer(opts, logging.Nop(), us, ps, rm), rm
}

func do(s *HTTPServer, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func bearer(token string) []string {
	return []string{common.AuthorizationHeaderName, "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), "body: %s", w.Body.String())
	return m
}

func signUpAndIn(t *testing.T, s *HTTPServer) string {
	t.Helper()
	w := do(s, http.MethodPost, "/sign-up", `{"name":"Alice","email":"a@b.com","password":"pw","cartItems":["sku-1"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["token"].(string)
}

// --- account routes ---

func TestSignUp(t *testing.T) {
	s, _ := newTestServer(t, testOptions())

	w := do(s, http.MethodPost, "/sign-up", `{"name":"Alice","email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(s, http.MethodPost, "/sign-up", `{"name":"Alice","email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(s, http.MethodPost, "/sign-up", `{"name":"","email":"x@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/sign-up", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignIn(t *testing.T) {
	s, _ := newTestServer(t, testOptions())
	token := signUpAndIn(t, s)

	id, err := auth.ParseToken(token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", id.Email)

	w := do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "email and password dont match", decode(t, w)["message"])

	w = do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"pw"}`)
	assert.Equal(t, "Logged In", decode(t, w)["message"])
}

func TestSignIn_RateLimited(t *testing.T) {
	opts := testOptions()
	opts.LoginRateLimit = 0.001
	opts.LoginRateBurst = 1
	s, _ := newTestServer(t, opts)

	w := do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// other routes are not limited
	w = do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerRoutes(t *testing.T) {
	s, _ := newTestServer(t, testOptions())
	token := signUpAndIn(t, s)

	w := do(s, http.MethodGet, "/authorize-token", "", bearer(token)...)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/fetch-user", "", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, []any{"sku-1"}, user["cartItems"])
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, w.Body.String(), "$2a$")

	w = do(s, http.MethodGet, "/authorize", "", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", decode(t, w)["name"])
}

func TestBearerRoutes_TokenFailures(t *testing.T) {
	s, _ := newTestServer(t, testOptions())
	token := signUpAndIn(t, s)
	id, err := auth.ParseToken(token, []byte(testSecret))
	require.NoError(t, err)

	expired, err := auth.GenerateToken(id.UserID, id.Email, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	forged, err := auth.GenerateToken(id.UserID, id.Email, []byte("other"), time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name    string
		headers []string
		want    string
	}{
		{"no header", nil, "No Token"},
		{"wrong scheme", []string{common.AuthorizationHeaderName, "Basic abc"}, "Invalid Token"},
		{"empty bearer", []string{common.AuthorizationHeaderName, "Bearer "}, "Invalid Token"},
		{"garbage", bearer("not.a.jwt"), "Invalid Token"},
		{"forged", bearer(forged), "Invalid Token"},
		{"expired", bearer(expired), "Token Expired"},
	}

	for _, path := range []string{"/authorize-token", "/fetch-user", "/authorize"} {
		for _, tc := range cases {
			t.Run(path+"/"+tc.name, func(t *testing.T) {
				w := do(s, http.MethodGet, path, "", tc.headers...)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Equal(t, tc.want, decode(t, w)["message"])
			})
		}
	}
}

func TestBearerRoutes_DeletedUser(t *testing.T) {
	s, _ := newTestServer(t, testOptions())
	token := signUpAndIn(t, s)

	w := do(s, http.MethodPost, "/deleteUser", `{"email":"a@b.com","password":"pw"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(s, http.MethodGet, "/fetch-user", "", bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token validation error", decode(t, w)["message"])
}

func TestDeleteUser(t *testing.T) {
	s, rm := newTestServer(t, testOptions())
	signUpAndIn(t, s)

	w := do(s, http.MethodPost, "/deleteUser", `{"email":"a@b.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err := rm.Users().GetUserByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)

	w = do(s, http.MethodPost, "/deleteUser", `{"email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	_, err = rm.Users().GetUserByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestServer(t, testOptions())
	signUpAndIn(t, s)

	w := do(s, http.MethodPost, "/changePassword", `{"email":"a@b.com","password":"pw","newPassword":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/changePassword", `{"email":"a@b.com","password":"bad","newPassword":"new"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodPost, "/changePassword", `{"email":"a@b.com","password":"pw","newPassword":"new"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(s, http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"new"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- payments ---

func paymentBody(order, payment, signature string) string {
	b, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   order,
		"razorpay_payment_id": payment,
		"razorpay_signature":  signature,
	})
	return string(b)
}

func TestVerifyPayment(t *testing.T) {
	s, rm := newTestServer(t, testOptions())
	good := paymentBody("order_1", "pay_1", payments.Sign("order_1", "pay_1", testPaymentSecret))

	w := do(s, http.MethodPost, "/verifyPayment", good)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	_, err := rm.Payments().GetByPaymentID(context.Background(), "pay_1")
	require.NoError(t, err)

	w = do(s, http.MethodPost, "/verifyPayment", good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = do(s, http.MethodPost, "/verifyPayment", paymentBody("order_9", "pay_1", payments.Sign("order_9", "pay_1", testPaymentSecret)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = do(s, http.MethodPost, "/verifyPayment", paymentBody("order_2", "pay_2", payments.Sign("order_2", "pay_2", "wrong")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
	_, err = rm.Payments().GetByPaymentID(context.Background(), "pay_2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	w = do(s, http.MethodPost, "/verifyPayment", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- health, metrics, fallbacks ---

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, testOptions())

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/ready", "").Code)

	s.store = fakePinger{err: errors.New("db down")}
	w := do(s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode(t, w)["status"])

	s.store = fakePinger{}
	s.shuttingDown.Store(true)
	w = do(s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "shutting_down", decode(t, w)["status"])
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "").Code)
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, testOptions())

	for _, path := range []string{"/products", "/featured", "/nav-data", "/anything"} {
		w := do(s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "not found", decode(t, w)["message"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, testOptions())

	do(s, http.MethodGet, "/health", "")
	do(s, http.MethodPost, "/verifyPayment", paymentBody("o", "p", "bad"))

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `storefront_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, body, `storefront_payment_verifications_total{result="mismatch"} 1`)
	assert.Contains(t, body, "storefront_http_request_duration_seconds")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, testOptions())

	w := do(s, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get(common.RequestIDHeaderName))

	w = do(s, http.MethodGet, "/health", "", common.RequestIDHeaderName, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(common.RequestIDHeaderName))
}

// failingUsers returns err from every call.
type failingUsers struct{ err error }

func (f failingUsers) Register(context.Context, services.RegisterInput) (*models.User, error) {
	return nil, f.err
}
func (f failingUsers) Login(context.Context, string, string) (string, error) { return "", f.err }
func (f failingUsers) Authorize(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f failingUsers) DeleteUser(context.Context, string, string) error { return f.err }
func (f failingUsers) ChangePassword(context.Context, string, string, string) error {
	return f.err
}

type panickingPayments struct{}

func (panickingPayments) VerifyPayment(context.Context, services.PaymentConfirmation) (*models.Payment, error) {
	panic("boom")
}

func TestInternalErrors(t *testing.T) {
	s := NewHTTPServer(testOptions(), logging.Nop(), failingUsers{err: errors.New("db error: down")}, panickingPayments{}, nil)

	checks := []struct{ method, path, body string }{
		{http.MethodPost, "/sign-up", `{"name":"A","email":"a@b.com","password":"pw"}`},
		{http.MethodPost, "/sign-in", `{"email":"a@b.com","password":"pw"}`},
		{http.MethodPost, "/deleteUser", `{"email":"a@b.com","password":"pw"}`},
		{http.MethodPost, "/changePassword", `{"email":"a@b.com","password":"pw","newPassword":"x"}`},
		{http.MethodPost, "/verifyPayment", paymentBody("o", "p", "s")},
	}
	for _, c := range checks {
		w := do(s, c.method, c.path, c.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, c.path)
		assert.Equal(t, "internal error", decode(t, w)["message"], c.path)
	}

	w := do(s, http.MethodGet, "/fetch-user", "", bearer("x")...)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
