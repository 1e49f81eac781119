package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Repository = (*MemoryRepository)(nil)
var _ Repository = (*SQLiteRepository)(nil)

// runContract checks the behavior cursors, snapshots and sessions rely on.
// newRepo must return an empty repository.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("missing key is nil, nil", func(t *testing.T) {
		r := newRepo(t)
		v, err := r.Get(ctx, "cursor:listings:u1")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "cursor:listings:u1", []byte("2024-01-01T00:00:00Z")))
		require.NoError(t, r.Set(ctx, "cursor:listings:u1", []byte("2024-01-03T00:00:00Z")))

		v, err := r.Get(ctx, "cursor:listings:u1")
		require.NoError(t, err)
		assert.Equal(t, []byte("2024-01-03T00:00:00Z"), v)
	})

	t.Run("binary values round trip", func(t *testing.T) {
		r := newRepo(t)
		sealed := []byte{0x00, 0xff, 0x10, 0x00}
		require.NoError(t, r.Set(ctx, "snapshot:u1", sealed))

		v, err := r.Get(ctx, "snapshot:u1")
		require.NoError(t, err)
		assert.Equal(t, sealed, v)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "session.token", []byte("t")))
		require.NoError(t, r.Delete(ctx, "session.token"))
		require.NoError(t, r.Delete(ctx, "session.token"))

		v, err := r.Get(ctx, "session.token")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("delete by suffix only hits that user", func(t *testing.T) {
		r := newRepo(t)
		for _, k := range []string{"cursor:listings:u1", "snapshot:u1", "cursor:listings:u11", "snapshot:u2", "session.user"} {
			require.NoError(t, r.Set(ctx, k, []byte(k)))
		}

		n, err := r.DeleteBySuffix(ctx, ":u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		m, err := r.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"cursor:listings:u11", "snapshot:u2", "session.user"}, keysOf(m))
	})

	t.Run("empty suffix deletes nothing", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "a", []byte{1}))

		n, err := r.DeleteBySuffix(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, n)

		m, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, m, 1)
	})

	t.Run("list and clear", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
		require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}))

		m, err := r.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"a": {0xAA}, "b": {0xBB, 0xCC}}, m)

		require.NoError(t, r.Clear(ctx))
		m, err = r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, m)
	})
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
