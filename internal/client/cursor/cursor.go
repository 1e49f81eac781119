// Package cursor persists per-collection, per-user sync watermarks.
//
// A cursor is the UpdatedAt of the newest row in the last absorbed batch.
// Writes overwrite the stored value unconditionally (last batch wins); a
// batch holding only rows older than the stored cursor moves the watermark
// back, which costs a redundant pull but never loses data.
package cursor

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// Layout is the on-disk timestamp format.
const Layout = time.RFC3339Nano

// Store reads and writes cursors under fully namespaced keys
// (see identity.Scope.NamespacedKey).
type Store struct {
	repo   metadata.Repository
	logger logging.Logger
}

func NewStore(repo metadata.Repository, logger logging.Logger) *Store {
	return &Store{repo: repo, logger: logging.OrNop(logger).With("module", "cursor")}
}

// MaxUpdatedAt returns the newest UpdatedAt in rows by linear scan.
// ok is false for an empty batch.
func MaxUpdatedAt(rows []record.Row) (max time.Time, ok bool) {
	for i, r := range rows {
		if i == 0 || r.UpdatedAt.After(max) {
			max = r.UpdatedAt
		}
	}
	return max, len(rows) > 0
}

// WriteFromRows stores the newest UpdatedAt of rows under key. An empty
// batch is a no-op.
func (s *Store) WriteFromRows(ctx context.Context, key string, rows []record.Row) error {
	max, ok := MaxUpdatedAt(rows)
	if !ok {
		return nil
	}
	return s.Write(ctx, key, max)
}

// Write stores ts under key, replacing any previous value.
func (s *Store) Write(ctx context.Context, key string, ts time.Time) error {
	if err := s.repo.Set(ctx, key, []byte(ts.UTC().Format(Layout))); err != nil {
		return err
	}
	s.logger.Debug(ctx, "cursor written", "key", key, "cursor", ts)
	return nil
}

// Read returns the cursor stored under key. Missing, unparsable or
// unreadable values all read as absent.
func (s *Store) Read(ctx context.Context, key string) (time.Time, bool) {
	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "cursor read failed", "key", key, "error", err)
		return time.Time{}, false
	}
	if raw == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(Layout, string(raw))
	if err != nil {
		s.logger.Warn(ctx, "discarding malformed cursor", "key", key, "error", err)
		return time.Time{}, false
	}
	return ts, true
}

// Clear removes the cursor stored under key.
func (s *Store) Clear(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
