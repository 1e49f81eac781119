// Package server wires the catalog server together: it opens the database,
// connects to object storage for image URLs and serves the catalog over gRPC
// until the context is canceled or a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/server/catalog"
	"github.com/dmitrijs2005/shelfsync/internal/server/config"
	"github.com/dmitrijs2005/shelfsync/internal/server/db"

	gs "github.com/dmitrijs2005/shelfsync/internal/server/grpc"
)

type grpcRunner interface {
	Run(ctx context.Context) error
}

// seams for tests
var (
	newRepositoryManager = func(ctx context.Context, dsn string) (db.RepositoryManager, error) {
		return db.NewPostgresRepositoryManager(ctx, dsn)
	}
	newPresigner = func(ctx context.Context, c *config.Config) (catalog.Presigner, error) {
		return catalog.NewS3Presigner(ctx, c)
	}
	newGRPCServer = func(c *config.Config, l logging.Logger, cs gs.CatalogService) (grpcRunner, error) {
		return gs.NewGRPCServer(c.EndpointAddrGRPC, l, cs, c.SecretKey)
	}
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	repos          db.RepositoryManager
	catalogService *catalog.Service
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if logger == nil {
		logger = logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	}

	repos, err := newRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	// images are still served without URLs when storage is unreachable
	var presigner catalog.Presigner
	p, err := newPresigner(ctx, c)
	if err != nil {
		logger.Warn(ctx, "object storage unavailable, image URLs disabled", "error", err)
	} else {
		presigner = p
	}

	cs := catalog.NewService(repos.Catalog(), presigner, logger)

	return &App{config: c, logger: logger, repos: repos, catalogService: cs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {

	s, err := newGRPCServer(app.config, app.logger, app.catalogService)
	if err != nil {
		cancelFunc()
		return err
	}

	if err := s.Run(ctx); err != nil {
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is canceled or a signal arrives, then closes the
// database. It returns the server's error, if any.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startGRPCServer(ctx, cancelFunc)
		if runErr != nil {
			app.logger.Error(ctx, "grpc server failed", "error", runErr)
		}
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return runErr
}
