// Package bootstrap seeds collections for a freshly signed-in user.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/collection"
	"github.com/dmitrijs2005/shelfsync/internal/client/cursor"
	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/fanout"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

var ErrIdentityChanged = collection.ErrIdentityChanged

// Preloader starts a collection's live incremental sync.
type Preloader interface {
	Preload(ctx context.Context) error
}

// Params describes one collection bootstrap.
type Params struct {
	Name       string
	UserID     string
	QueryKey   string
	CursorBase string
	Collection Preloader
	FetchSeed  func(ctx context.Context) ([]record.Row, error)
	// OnSeeded, when set, runs after the cache and cursor writes and before
	// Preload.
	OnSeeded func(rows []record.Row)
}

// ForCollection builds Params that seed c from a full pull of its source.
func ForCollection(userID string, c *collection.Synced) Params {
	src := c.Source()
	return Params{
		Name:       c.Name(),
		UserID:     userID,
		QueryKey:   c.QueryKey(),
		CursorBase: c.CursorBase(),
		Collection: c,
		FetchSeed: func(ctx context.Context) ([]record.Row, error) {
			return src.Pull(ctx, time.Time{})
		},
	}
}

type Bootstrapper struct {
	scope   *identity.Scope
	cache   *collection.Cache
	cursors *cursor.Store
	logger  logging.Logger
}

func New(scope *identity.Scope, cache *collection.Cache, cursors *cursor.Store, logger logging.Logger) *Bootstrapper {
	return &Bootstrapper{
		scope:   scope,
		cache:   cache,
		cursors: cursors,
		logger:  logging.OrNop(logger).With("module", "bootstrap"),
	}
}

// Bootstrap sets the identity, fetches the seed rows, writes them verbatim
// into the query cache, writes the cursor and then waits for the
// collection's preload. The steps run strictly in that order.
//
// A failed seed fetch is returned and nothing is written. A seed fetched for
// a user who is no longer current is discarded with ErrIdentityChanged.
func (b *Bootstrapper) Bootstrap(ctx context.Context, p Params) error {
	b.scope.Set(p.UserID)

	rows, err := p.FetchSeed(ctx)
	if err != nil {
		return fmt.Errorf("seed %s: %w", p.Name, err)
	}

	if !b.scope.Is(p.UserID) {
		b.logger.Warn(ctx, "discarding seed for previous identity", "collection", p.Name, "user", p.UserID)
		return ErrIdentityChanged
	}

	b.cache.SetQueryData(p.QueryKey, record.CloneRows(rows))

	cursorKey := identity.KeyFor(p.CursorBase, p.UserID)
	if err := b.cursors.WriteFromRows(ctx, cursorKey, rows); err != nil {
		b.logger.Warn(ctx, "cursor write failed", "collection", p.Name, "error", err)
	}

	if p.OnSeeded != nil {
		p.OnSeeded(rows)
	}

	b.logger.Info(ctx, "collection seeded", "collection", p.Name, "rows", len(rows))

	if p.Collection == nil {
		return nil
	}
	if err := p.Collection.Preload(ctx); err != nil {
		return fmt.Errorf("preload %s: %w", p.Name, err)
	}
	return nil
}

// BootstrapAll runs every bootstrap concurrently. A failing collection is
// logged and reported in the results; it never stops the others.
func (b *Bootstrapper) BootstrapAll(ctx context.Context, params []Params) []fanout.Result {
	tasks := make([]fanout.Task, len(params))
	for i, p := range params {
		tasks[i] = fanout.Task{
			Name: p.Name,
			Run:  func(ctx context.Context) error { return b.Bootstrap(ctx, p) },
		}
	}

	results := fanout.Join(ctx, tasks)
	for _, r := range fanout.Failed(results) {
		b.logger.Error(ctx, "bootstrap failed", "collection", r.Name, "error", r.Err)
	}
	return results
}
