// Package metadata provides the client's durable key/value store.
//
// Cursors and collection snapshots are kept here, one key per collection and
// user. SQLiteRepository persists into the `metadata` table created by the
// client migrations; MemoryRepository is a process-local implementation for
// tests and ephemeral sessions.
//
// Typical Usage
//
//	repo := metadata.NewSQLiteRepository(db)
//	_ = repo.Set(ctx, "cursor:listings:u1", []byte("2024-01-03T00:00:00Z"))
//	v, _ := repo.Get(ctx, "cursor:listings:u1")
//	n, _ := repo.DeleteBySuffix(ctx, ":u1")
package metadata
