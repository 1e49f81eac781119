package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/bootstrap"
	"github.com/dmitrijs2005/shelfsync/internal/client/collection"
	"github.com/dmitrijs2005/shelfsync/internal/client/cursor"
	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/client/revalidate"
	"github.com/dmitrijs2005/shelfsync/internal/client/snapshot"
	"github.com/dmitrijs2005/shelfsync/internal/common"
	"github.com/dmitrijs2005/shelfsync/internal/fanout"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

var (
	ErrSignedOut   = errors.New("not signed in")
	ErrEmptyUserID = errors.New("empty user id")
)

// Hydration reports how SignIn filled the replica.
type Hydration struct {
	// FromSnapshot is set when a usable snapshot was served.
	FromSnapshot bool
	// Stale is set when that snapshot was past its TTL and a background
	// refresh was started.
	Stale bool
	// Failed names the collections whose bootstrap failed.
	Failed []string
}

// SyncDeps are the collaborators of a SyncService. All fields are required
// except Logger.
type SyncDeps struct {
	Scope       *identity.Scope
	Cache       *collection.Cache
	Store       metadata.Repository
	Cursors     *cursor.Store
	Snapshots   *snapshot.Manager
	Collections []*collection.Synced
	Logger      logging.Logger
}

// SyncService ties the sync building blocks to the session lifecycle:
// hydrate on sign-in, refresh and persist while signed in, evict on sign-out.
type SyncService struct {
	scope       *identity.Scope
	cache       *collection.Cache
	store       metadata.Repository
	cursors     *cursor.Store
	snapshots   *snapshot.Manager
	boot        *bootstrap.Bootstrapper
	reval       *revalidate.Revalidator
	collections []*collection.Synced
	byName      map[string]*collection.Synced
	logger      logging.Logger

	wg sync.WaitGroup
}

func NewSyncService(d SyncDeps) *SyncService {
	logger := logging.OrNop(d.Logger)
	s := &SyncService{
		scope:       d.Scope,
		cache:       d.Cache,
		store:       d.Store,
		cursors:     d.Cursors,
		snapshots:   d.Snapshots,
		boot:        bootstrap.New(d.Scope, d.Cache, d.Cursors, logger),
		reval:       revalidate.New(d.Scope, logger),
		collections: d.Collections,
		byName:      make(map[string]*collection.Synced, len(d.Collections)),
		logger:      logger.With("module", "sync_service"),
	}
	for _, c := range d.Collections {
		s.byName[c.Name()] = c
		s.reval.Track(c)
	}
	return s
}

// CurrentUser returns the signed-in user id, or "".
func (s *SyncService) CurrentUser() string {
	return s.scope.Current()
}

// Collections returns the collection names in registration order.
func (s *SyncService) Collections() []string {
	names := make([]string, len(s.collections))
	for i, c := range s.collections {
		names[i] = c.Name()
	}
	return names
}

// SignIn switches the replica to userID.
//
// A usable snapshot is served immediately; when it is stale a background
// Refresh is started (see Wait). Collections missing from the snapshot, or
// every collection when no usable snapshot exists, are bootstrapped from a
// full pull. An unusable snapshot is deleted.
func (s *SyncService) SignIn(ctx context.Context, userID string) (Hydration, error) {
	if userID == "" {
		return Hydration{}, ErrEmptyUserID
	}
	if prev := s.scope.Current(); prev != "" && prev != userID {
		s.cache.Clear()
	}
	s.scope.Set(userID)

	var h Hydration
	pending := s.collections

	snap := s.snapshots.Read(ctx, userID)
	switch {
	case snap != nil && s.snapshots.IsUsable(snap):
		pending = s.restore(ctx, userID, snap)
		h.FromSnapshot = true
		h.Stale = !s.snapshots.IsFresh(snap)
	case snap != nil:
		s.logger.Info(ctx, "discarding unusable snapshot", "user", userID, "version", snap.Version)
		if err := s.snapshots.Delete(ctx, userID); err != nil {
			s.logger.Warn(ctx, "snapshot delete failed", "error", err)
		}
	}

	if len(pending) > 0 {
		params := make([]bootstrap.Params, len(pending))
		for i, c := range pending {
			params[i] = bootstrap.ForCollection(userID, c)
		}
		for _, r := range fanout.Failed(s.boot.BootstrapAll(ctx, params)) {
			h.Failed = append(h.Failed, r.Name)
		}
	}

	if h.Stale {
		s.Go(ctx, func(ctx context.Context) {
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "background refresh failed", "error", err)
			}
		})
	}

	s.logger.Info(ctx, "signed in", "user", userID,
		"from_snapshot", h.FromSnapshot, "stale", h.Stale, "failed", len(h.Failed))
	return h, nil
}

// restore primes the cache from snap and rewrites each restored collection's
// cursor from the restored rows, so the cursor never runs ahead of the cache.
// It returns the collections the snapshot does not cover.
func (s *SyncService) restore(ctx context.Context, userID string, snap *snapshot.Snapshot) []*collection.Synced {
	restored := s.snapshots.ToRestoredShape(snap)

	var missing []*collection.Synced
	for _, c := range s.collections {
		rows, ok := restored.Collections[c.Name()]
		if !ok {
			missing = append(missing, c)
			continue
		}
		s.cache.SetQueryData(c.QueryKey(), rows)

		key := identity.KeyFor(c.CursorBase(), userID)
		var err error
		if len(rows) == 0 {
			err = s.cursors.Clear(ctx, key)
		} else {
			err = s.cursors.WriteFromRows(ctx, key, rows)
		}
		if err != nil {
			s.logger.Warn(ctx, "cursor reset failed", "collection", c.Name(), "error", err)
		}
	}
	return missing
}

// SignOut waits for background work, then removes every durable key
// namespaced to the user (cursors and snapshot), empties the query cache and
// clears the identity. The identity is cleared first so that in-flight
// fetches for the user are discarded.
func (s *SyncService) SignOut(ctx context.Context) error {
	userID := s.scope.Current()
	if userID == "" {
		return nil
	}

	s.scope.Set("")
	s.Wait()

	n, err := s.store.DeleteBySuffix(ctx, ":"+userID)
	if err != nil {
		s.logger.Error(ctx, "evicting user data failed", "user", userID, "error", err)
	}
	s.cache.Clear()

	s.logger.Info(ctx, "signed out", "user", userID, "evicted", n)
	if err != nil {
		return fmt.Errorf("evict %s: %w", userID, err)
	}
	return nil
}

// Refresh revalidates every collection and then persists a snapshot.
// Collection failures are logged by the revalidator and never fail Refresh.
func (s *SyncService) Refresh(ctx context.Context) error {
	userID := s.scope.Current()
	if userID == "" {
		return ErrSignedOut
	}
	s.reval.RevalidateAll(ctx, userID)
	return s.Persist(ctx)
}

// Persist writes a snapshot of every cached collection.
func (s *SyncService) Persist(ctx context.Context) error {
	userID := s.scope.Current()
	if userID == "" {
		return ErrSignedOut
	}

	cols := make(map[string][]record.Row, len(s.collections))
	for _, c := range s.collections {
		if rows, ok := s.cache.GetQueryData(c.QueryKey()); ok {
			cols[c.Name()] = rows
		}
	}

	if !s.scope.Is(userID) {
		return collection.ErrIdentityChanged
	}
	return s.snapshots.Write(ctx, s.snapshots.Create(userID, cols))
}

// Run refreshes every interval until ctx is done.
func (s *SyncService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.scope.Current() == "" {
				continue
			}
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn(ctx, "periodic refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Go runs fn in the background. The work outlives ctx's cancellation but
// keeps its values; Wait joins it.
func (s *SyncService) Go(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until all background work started by Go has finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

func (s *SyncService) collection(name string) (*collection.Synced, error) {
	c, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownCollection, name)
	}
	return c, nil
}

// Rows returns the cached rows of the named collection.
func (s *SyncService) Rows(name string) ([]record.Row, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	return c.Rows(), nil
}

// Search filters the named collection by normalized title tokens.
func (s *SyncService) Search(name, query string) ([]record.Row, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	return c.Filter(query), nil
}

// Mutate writes row optimistically into the named collection.
func (s *SyncService) Mutate(ctx context.Context, name string, row record.Row) (record.Row, error) {
	if s.scope.Current() == "" {
		return record.Row{}, ErrSignedOut
	}
	c, err := s.collection(name)
	if err != nil {
		return record.Row{}, err
	}
	return c.Mutate(ctx, row)
}
