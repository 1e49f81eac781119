// Package revalidate refreshes every tracked collection in parallel on a
// best-effort basis.
package revalidate

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/fanout"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
)

// Refetcher is a collection that can invalidate and re-fetch itself.
type Refetcher interface {
	Name() string
	Refetch(ctx context.Context) error
}

type Revalidator struct {
	scope  *identity.Scope
	logger logging.Logger

	mu      sync.Mutex
	tracked []Refetcher
}

func New(scope *identity.Scope, logger logging.Logger) *Revalidator {
	return &Revalidator{scope: scope, logger: logging.OrNop(logger).With("module", "revalidate")}
}

// Track adds collections to the set refreshed by RevalidateAll.
func (r *Revalidator) Track(cs ...Refetcher) {
	r.mu.Lock()
	r.tracked = append(r.tracked, cs...)
	r.mu.Unlock()
}

func (r *Revalidator) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.tracked))
	for i, c := range r.tracked {
		names[i] = c.Name()
	}
	return names
}

// RevalidateAll refetches every tracked collection concurrently and waits
// for all of them. Individual failures are logged and swallowed. Nothing
// runs when userID is no longer the current identity.
func (r *Revalidator) RevalidateAll(ctx context.Context, userID string) {
	if !r.scope.Is(userID) {
		r.logger.Info(ctx, "skipping revalidation for previous identity", "user", userID)
		return
	}

	r.mu.Lock()
	tasks := make([]fanout.Task, len(r.tracked))
	for i, c := range r.tracked {
		tasks[i] = fanout.Task{Name: c.Name(), Run: c.Refetch}
	}
	r.mu.Unlock()

	results := fanout.Join(ctx, tasks)
	failed := fanout.Failed(results)
	for _, f := range failed {
		r.logger.Warn(ctx, "revalidation failed", "collection", f.Name, "error", f.Err)
	}
	r.logger.Info(ctx, "revalidated", "collections", len(results), "failed", len(failed))
}
