package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Contract(t *testing.T) {
	runContract(t, func(*testing.T) Repository { return NewMemoryRepository() })
}

func TestMemoryRepository_CopiesValues(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, r.Set(ctx, "k", in))
	in[0] = 'z'

	out, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	out[1] = 'z'
	again, _ := r.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)

	listed, err := r.List(ctx)
	require.NoError(t, err)
	listed["k"][2] = 'z'
	again, _ = r.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}
