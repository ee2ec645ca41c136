// Package rest exposes the storefront account and payment API over HTTP
// using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is the account logic the handlers depend on.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Authorize(ctx context.Context, token string) (*models.User, error)
	DeleteUser(ctx context.Context, email, password string) error
	ChangePassword(ctx context.Context, email, password, newPassword string) error
}

// PaymentService is the payment logic the handlers depend on.
type PaymentService interface {
	VerifyPayment(ctx context.Context, in services.PaymentConfirmation) (*models.Payment, error)
}

// Pinger reports backing store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Address         string
	ShutdownTimeout time.Duration
	LoginRateLimit  float64
	LoginRateBurst  int
}

const readHeaderTimeout = 5 * time.Second

type HTTPServer struct {
	opts     Options
	router   *gin.Engine
	logger   logging.Logger
	users    UserService
	payments PaymentService
	store    Pinger
	metrics  *Metrics

	shuttingDown atomic.Bool
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, ps PaymentService, store Pinger) *HTTPServer {
	s := &HTTPServer{
		opts:     opts,
		logger:   l.With("module", "http_server"),
		users:    us,
		payments: ps,
		store:    store,
		metrics:  NewMetrics(),
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the configured router.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on the configured address until ctx is canceled, then
// fails readiness and shuts down gracefully within ShutdownTimeout.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		s.shuttingDown.Store(true)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
