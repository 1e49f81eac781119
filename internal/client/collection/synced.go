package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/cursor"
	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/client/querycache"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
	"github.com/dmitrijs2005/shelfsync/internal/textnorm"
	"github.com/google/uuid"
)

var (
	// ErrIdentityChanged is returned when the signed-in user changed while a
	// request was in flight. The result was discarded.
	ErrIdentityChanged = errors.New("identity changed during sync")
	ErrReadOnly        = errors.New("collection is read-only")
)

// Cache is the query cache shared by all collections.
type Cache = querycache.Cache[string, []record.Row]

// Source returns the rows updated strictly after since. A zero since asks
// for the full set.
type Source interface {
	Pull(ctx context.Context, since time.Time) ([]record.Row, error)
}

// Mutator persists a row and returns the server-confirmed version.
type Mutator interface {
	Push(ctx context.Context, row record.Row) (record.Row, error)
}

type SourceFunc func(ctx context.Context, since time.Time) ([]record.Row, error)

func (f SourceFunc) Pull(ctx context.Context, since time.Time) ([]record.Row, error) {
	return f(ctx, since)
}

type MutatorFunc func(ctx context.Context, row record.Row) (record.Row, error)

func (f MutatorFunc) Push(ctx context.Context, row record.Row) (record.Row, error) {
	return f(ctx, row)
}

// Options configures a Synced collection. Only Name and Source are required.
type Options struct {
	Name string
	// QueryKey defaults to Name.
	QueryKey string
	// CursorBase defaults to "cursor:" + Name.
	CursorBase string
	Source     Source
	// Mutator may be nil for read-only collections.
	Mutator Mutator
	Logger  logging.Logger
	Now     func() time.Time
}

// Synced is one incrementally synchronized collection.
type Synced struct {
	name       string
	queryKey   string
	cursorBase string
	scope      *identity.Scope
	cache      *Cache
	cursors    *cursor.Store
	source     Source
	mutator    Mutator
	logger     logging.Logger
	now        func() time.Time
}

// New builds a collection and registers its incremental fetcher with cache.
func New(scope *identity.Scope, cache *Cache, cursors *cursor.Store, opts Options) *Synced {
	s := &Synced{
		name:       opts.Name,
		queryKey:   opts.QueryKey,
		cursorBase: opts.CursorBase,
		scope:      scope,
		cache:      cache,
		cursors:    cursors,
		source:     opts.Source,
		mutator:    opts.Mutator,
		logger:     logging.OrNop(opts.Logger).With("module", "collection", "collection", opts.Name),
		now:        opts.Now,
	}
	if s.queryKey == "" {
		s.queryKey = opts.Name
	}
	if s.cursorBase == "" {
		s.cursorBase = "cursor:" + opts.Name
	}
	if s.now == nil {
		s.now = time.Now
	}
	cache.Register(s.queryKey, s.fetch)
	return s
}

func (s *Synced) Name() string       { return s.name }
func (s *Synced) QueryKey() string   { return s.queryKey }
func (s *Synced) CursorBase() string { return s.cursorBase }
func (s *Synced) Source() Source     { return s.source }

// fetch is the query cache fetcher: one incremental pull merged into the
// cached rows. The cache write happens before the cursor write.
func (s *Synced) fetch(ctx context.Context, key string) ([]record.Row, error) {
	userID := s.scope.Current()
	if userID == "" {
		return nil, ErrIdentityChanged
	}
	cursorKey := identity.KeyFor(s.cursorBase, userID)

	since, _ := s.cursors.Read(ctx, cursorKey)
	batch, err := s.source.Pull(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", s.name, err)
	}

	if !s.scope.Is(userID) {
		s.logger.Warn(ctx, "discarding pull for previous identity", "user", userID)
		return nil, ErrIdentityChanged
	}

	merged := s.cache.Update(key, func(old []record.Row, _ bool) []record.Row {
		return Merge(old, batch)
	})

	if err := s.cursors.WriteFromRows(ctx, cursorKey, batch); err != nil {
		s.logger.Warn(ctx, "cursor write failed", "error", err)
	}

	s.logger.Debug(ctx, "pulled", "since", since, "rows", len(batch), "total", len(merged))
	return merged, nil
}

// Preload runs one incremental sync and waits for it.
func (s *Synced) Preload(ctx context.Context) error {
	return s.fetchForCurrent(ctx)
}

// Refetch marks the cached rows stale and then fetches. The two steps are
// not atomic; observers may see the stale mark before the fetch resolves.
func (s *Synced) Refetch(ctx context.Context) error {
	s.cache.Invalidate(s.queryKey)
	return s.fetchForCurrent(ctx)
}

// fetchForCurrent waits for a fetch on behalf of the caller's user. Fetches
// are shared per query key, so the caller may have joined one started for
// the previous user; that one is discarded and a fresh fetch is run once.
func (s *Synced) fetchForCurrent(ctx context.Context) error {
	userID := s.scope.Current()
	if userID == "" {
		return ErrIdentityChanged
	}
	_, err := s.cache.Fetch(ctx, s.queryKey)
	if errors.Is(err, ErrIdentityChanged) && s.scope.Is(userID) {
		_, err = s.cache.Fetch(ctx, s.queryKey)
	}
	return err
}

// Rows returns a copy of the cached rows, nil when nothing is cached.
func (s *Synced) Rows() []record.Row {
	rows, _ := s.cache.GetQueryData(s.queryKey)
	return record.CloneRows(rows)
}

// Filter returns the rows whose normalized title contains every normalized
// token of query. An empty query matches every row.
func (s *Synced) Filter(query string) []record.Row {
	rows := s.Rows()
	if len(textnorm.Tokens(query)) == 0 {
		return rows
	}
	out := make([]record.Row, 0, len(rows))
	for _, r := range rows {
		if textnorm.MatchAll(r.Title, query) {
			out = append(out, r)
		}
	}
	return out
}

// Mutate writes row into the cache optimistically, pushes it and replaces it
// with the confirmed row. On failure the previous row is restored (or the
// optimistic row removed) and the transport error is returned.
func (s *Synced) Mutate(ctx context.Context, row record.Row) (record.Row, error) {
	if s.mutator == nil {
		return record.Row{}, ErrReadOnly
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = s.now().UTC()
	}
	userID := s.scope.Current()

	var prev record.Row
	hadPrev := false
	s.cache.Update(s.queryKey, func(old []record.Row, _ bool) []record.Row {
		if i := indexOf(old, row.ID); i >= 0 {
			prev, hadPrev = old[i].Clone(), true
		}
		return replace(old, row)
	})

	confirmed, err := s.mutator.Push(ctx, row)
	if err != nil {
		if s.scope.Is(userID) {
			s.cache.Update(s.queryKey, func(old []record.Row, _ bool) []record.Row {
				if hadPrev {
					return replace(old, prev)
				}
				return remove(old, row.ID)
			})
		}
		return record.Row{}, fmt.Errorf("push %s/%s: %w", s.name, row.ID, err)
	}

	if !s.scope.Is(userID) {
		s.logger.Warn(ctx, "discarding confirmation for previous identity", "id", row.ID)
		return confirmed, ErrIdentityChanged
	}

	s.cache.Update(s.queryKey, func(old []record.Row, _ bool) []record.Row {
		return replace(old, confirmed)
	})
	return confirmed, nil
}

// Poll refetches every interval until ctx is done. Failures are logged and
// polling continues.
func (s *Synced) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Refetch(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn(ctx, "poll failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
