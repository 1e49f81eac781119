// Package snapshot persists whole-collection snapshots per user and judges
// them on two independent axes: usable (written by a compatible schema
// version) and fresh (written within the TTL).
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/cryptox"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// CurrentVersion must be bumped whenever the shape of record.Row changes.
const CurrentVersion = 1

const (
	DefaultTTL = 24 * time.Hour
	keyBase    = "snapshot"
)

// Snapshot is written and read wholesale; nothing mutates one in place.
type Snapshot struct {
	UserID      string                  `json:"userId"`
	Version     int                     `json:"version"`
	PersistedAt time.Time               `json:"persistedAt"`
	Collections map[string][]record.Row `json:"collections"`
}

// Restored is the shape the query cache is primed from.
type Restored struct {
	Collections map[string][]record.Row
}

type Manager struct {
	repo    metadata.Repository
	ttl     time.Duration
	now     func() time.Time
	sealKey []byte
	logger  logging.Logger
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

// WithSealKey encrypts stored snapshots with a key derived from passphrase.
// An empty passphrase leaves snapshots in plain JSON.
func WithSealKey(passphrase string) Option {
	return func(m *Manager) {
		if passphrase != "" {
			m.sealKey = []byte(passphrase)
		}
	}
}

func New(repo metadata.Repository, opts ...Option) *Manager {
	m := &Manager{repo: repo, ttl: DefaultTTL, now: time.Now, logger: logging.Nop{}}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("module", "snapshot")
	return m
}

// Key returns the storage key holding userID's snapshot.
func Key(userID string) string {
	return identity.KeyFor(keyBase, userID)
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func cloneCollections(in map[string][]record.Row) map[string][]record.Row {
	out := make(map[string][]record.Row, len(in))
	for name, rows := range in {
		out[name] = record.CloneRows(rows)
	}
	return out
}

// Create stamps collections with the current version and time.
func (m *Manager) Create(userID string, collections map[string][]record.Row) *Snapshot {
	return &Snapshot{
		UserID:      userID,
		Version:     CurrentVersion,
		PersistedAt: m.now().UTC(),
		Collections: cloneCollections(collections),
	}
}

// IsUsable reports whether s was written by a compatible schema version.
// Age is irrelevant.
func (m *Manager) IsUsable(s *Snapshot) bool {
	return s != nil && s.Version == CurrentVersion
}

// IsFresh reports whether s was persisted no longer than the TTL ago.
// Version is irrelevant.
func (m *Manager) IsFresh(s *Snapshot) bool {
	if s == nil || s.PersistedAt.IsZero() {
		return false
	}
	return m.now().Sub(s.PersistedAt) <= m.ttl
}

// ToRestoredShape returns deep copies of the snapshot's collections.
func (m *Manager) ToRestoredShape(s *Snapshot) Restored {
	if s == nil {
		return Restored{Collections: map[string][]record.Row{}}
	}
	return Restored{Collections: cloneCollections(s.Collections)}
}

// Write stores s under its user's key, replacing any previous snapshot.
func (m *Manager) Write(ctx context.Context, s *Snapshot) error {
	if s == nil {
		return nil
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if m.sealKey != nil {
		blob, err = cryptox.SealWithPassphrase(blob, m.sealKey)
		if err != nil {
			return fmt.Errorf("seal snapshot: %w", err)
		}
	}
	if err := m.repo.Set(ctx, Key(s.UserID), blob); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	m.logger.Debug(ctx, "snapshot written", "user", s.UserID, "collections", len(s.Collections))
	return nil
}

// Read returns userID's snapshot or nil. Missing, unreadable, unopenable and
// undecodable records all read as nil; validity is left to IsUsable and
// IsFresh.
func (m *Manager) Read(ctx context.Context, userID string) *Snapshot {
	blob, err := m.repo.Get(ctx, Key(userID))
	if err != nil {
		m.logger.Warn(ctx, "snapshot read failed", "user", userID, "error", err)
		return nil
	}
	if blob == nil {
		return nil
	}
	if m.sealKey != nil {
		blob, err = cryptox.OpenWithPassphrase(blob, m.sealKey)
		if err != nil {
			m.logger.Warn(ctx, "snapshot cannot be opened", "user", userID, "error", err)
			return nil
		}
	}

	var s Snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		m.logger.Warn(ctx, "snapshot is corrupt", "user", userID, "error", err)
		return nil
	}
	if s.UserID != userID {
		m.logger.Warn(ctx, "snapshot belongs to another user", "user", userID)
		return nil
	}
	return &s
}

// Delete removes userID's snapshot.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if err := m.repo.Delete(ctx, Key(userID)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
