// Package server initializes and runs the storefront backend: it builds the
// logger, connects and migrates the configured store, wires the services
// and serves the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/receipts"
	"github.com/dmitrijs2005/storefront/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/storefront/internal/server/rest"
	"github.com/dmitrijs2005/storefront/internal/server/services"
)

// logOutput is where the application log goes; tests silence it.
var logOutput io.Writer = os.Stdout

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      repomanager.RepositoryManager
	httpServer *rest.HTTPServer
}

// NewApp builds every component from c. Any error is fatal: bad log level,
// unreachable store, failed migration or broken object storage settings.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogLevel, logOutput)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	store, err := repomanager.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	archiver, err := receipts.New(ctx, c)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("receipts init error: %w", err)
	}

	us := services.NewUserService(store, c)
	ps := services.NewPaymentService(store, archiver, c, logger.With("module", "payments"))

	hs := rest.NewHTTPServer(rest.Options{
		Address:         c.EndpointAddrHTTP,
		ShutdownTimeout: c.ShutdownTimeout,
		LoginRateLimit:  c.LoginRateLimit,
		LoginRateBurst:  c.LoginRateBurst,
	}, logger, us, ps, store)

	logger.Info(ctx, "App initialized", "storage", c.StorageDriver, "receipts", c.ReceiptsEnabled)

	return &App{config: c, logger: logger, store: store, httpServer: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is canceled or a termination signal arrives, then
// closes the store.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	runErr := app.httpServer.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "HTTP server error", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := app.store.Close(closeCtx); err != nil {
		app.logger.Error(closeCtx, "store close error", "error", err)
	}

	app.logger.Info(closeCtx, "App stopped")
	return runErr
}
