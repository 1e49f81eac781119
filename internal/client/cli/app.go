package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/client"
	"github.com/dmitrijs2005/shelfsync/internal/client/collection"
	"github.com/dmitrijs2005/shelfsync/internal/client/config"
	"github.com/dmitrijs2005/shelfsync/internal/client/cursor"
	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/client/querycache"
	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/client/services"
	"github.com/dmitrijs2005/shelfsync/internal/client/snapshot"
	"github.com/dmitrijs2005/shelfsync/internal/common"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// syncService is the part of services.SyncService the CLI drives.
type syncService interface {
	CurrentUser() string
	Collections() []string
	SignIn(ctx context.Context, userID string) (services.Hydration, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context) error
	Persist(ctx context.Context) error
	Run(ctx context.Context, interval time.Duration)
	Wait()
	Rows(name string) ([]record.Row, error)
	Search(name, query string) ([]record.Row, error)
}

type App struct {
	config      *config.Config
	db          *sql.DB
	authService services.AuthService
	syncService syncService
	logger      logging.Logger
	reader      *bufio.Reader

	mu        sync.Mutex
	mode      Mode
	stopRun   context.CancelFunc
	runExited chan struct{}
}

// NewApp opens the local database, dials the catalog server and wires the
// sync stack for every catalog collection.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewCatalogClient(c.ServerEndpointAddr)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := metadata.NewSQLiteRepository(db)
	scope := identity.NewScope("")
	cache := querycache.New[string, []record.Row]()
	cursors := cursor.NewStore(store, logger)
	snapshots := snapshot.New(store,
		snapshot.WithTTL(c.SnapshotTTL),
		snapshot.WithLogger(logger),
		snapshot.WithSealKey(c.SnapshotSealKey),
	)

	cols := make([]*collection.Synced, 0, len(common.Collections))
	for _, name := range common.Collections {
		src := client.NewSource(apiClient, name)
		opts := collection.Options{Name: name, Source: src, Logger: logger}
		// reference data is maintained server-side only
		if name != common.CollectionReferences {
			opts.Mutator = src
		}
		cols = append(cols, collection.New(scope, cache, cursors, opts))
	}

	ss := services.NewSyncService(services.SyncDeps{
		Scope:       scope,
		Cache:       cache,
		Store:       store,
		Cursors:     cursors,
		Snapshots:   snapshots,
		Collections: cols,
		Logger:      logger,
	})

	return &App{
		config:      c,
		db:          db,
		authService: services.NewAuthService(apiClient, db),
		syncService: ss,
		logger:      logger.With("module", "cli"),
		reader:      bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.syncService.CurrentUser() != ""
}

// Run resumes a saved session when there is one, starts the connectivity
// watcher and blocks in the REPL until the user exits. On exit the replica
// is persisted and background work is joined.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.resume(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("Welcome to shelfsync (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))

	a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) {
	a.stopRevalidation()
	if a.isLoggedIn() {
		if err := a.syncService.Persist(ctx); err != nil {
			a.logger.Warn(ctx, "snapshot persist failed", "error", err)
		}
	}
	a.syncService.Wait()

	if err := a.authService.Close(ctx); err != nil {
		a.logger.Warn(ctx, "client close failed", "error", err)
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) getStatus() string {
	s := ""
	if u := a.syncService.CurrentUser(); u != "" {
		s = u + " "
	}
	if m := a.currentMode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode between online and offline. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pctx)
	cancel()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// startRevalidation runs the periodic background refresh for the signed-in
// user until stopRevalidation or ctx ends.
func (a *App) startRevalidation(ctx context.Context) {
	a.stopRevalidation()

	interval := a.config.RevalidateInterval
	if interval <= 0 {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.stopRun = cancel
	a.runExited = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.syncService.Run(runCtx, interval)
	}()
}

func (a *App) stopRevalidation() {
	a.mu.Lock()
	cancel, done := a.stopRun, a.runExited
	a.stopRun, a.runExited = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
