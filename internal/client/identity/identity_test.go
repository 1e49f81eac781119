package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacedKey_FollowsIdentity(t *testing.T) {
	s := NewScope("")

	assert.Equal(t, "cursor:listings", s.NamespacedKey("cursor:listings"))

	s.Set("u1")
	assert.Equal(t, "u1", s.Current())
	assert.Equal(t, "cursor:listings:u1", s.NamespacedKey("cursor:listings"))

	s.Set("")
	assert.Equal(t, "cursor:listings", s.NamespacedKey("cursor:listings"))
}

func TestNamespacedKey_ReDerivedAfterSwitch(t *testing.T) {
	s := NewScope("u1")
	before := s.NamespacedKey("snapshot")

	s.Set("u2")
	after := s.NamespacedKey("snapshot")

	assert.Equal(t, "snapshot:u1", before)
	assert.Equal(t, "snapshot:u2", after)
	assert.True(t, s.Is("u2"))
	assert.False(t, s.Is("u1"))
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "base", KeyFor("base", ""))
	assert.Equal(t, "base:x", KeyFor("base", "x"))
}

func TestContextRoundTrip(t *testing.T) {
	s := NewScope("u9")
	ctx := WithScope(context.Background(), s)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestScope_ConcurrentAccess(t *testing.T) {
	s := NewScope("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.Set("u") }()
		go func() { defer wg.Done(); _ = s.NamespacedKey("k") }()
	}
	wg.Wait()
	assert.Equal(t, "u", s.Current())
}
