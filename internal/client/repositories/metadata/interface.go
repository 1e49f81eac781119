package metadata

import (
	"context"
)

// Repository is the durable key/value store behind cursors and snapshots.
//
// Get returns (nil, nil) for a missing key. Keys are opaque to the store;
// per-user keys end in ":<userID>" (see identity.KeyFor), which is what
// DeleteBySuffix is for.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteBySuffix(ctx context.Context, suffix string) (int64, error)
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
