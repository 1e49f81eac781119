package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/collection"
	"github.com/dmitrijs2005/shelfsync/internal/client/cursor"
	"github.com/dmitrijs2005/shelfsync/internal/client/identity"
	"github.com/dmitrijs2005/shelfsync/internal/client/querycache"
	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

type env struct {
	scope   *identity.Scope
	cache   *collection.Cache
	repo    *metadata.MemoryRepository
	cursors *cursor.Store
	b       *Bootstrapper
}

func newEnv() *env {
	e := &env{
		scope: identity.NewScope(""),
		cache: querycache.New[string, []record.Row](),
		repo:  metadata.NewMemoryRepository(),
	}
	e.cursors = cursor.NewStore(e.repo, nil)
	e.b = New(e.scope, e.cache, e.cursors, nil)
	return e
}

type preloadFunc func(ctx context.Context) error

func (f preloadFunc) Preload(ctx context.Context) error { return f(ctx) }

func seedRows() []record.Row {
	return []record.Row{
		{ID: "a", UpdatedAt: day(1)},
		{ID: "b", UpdatedAt: day(3)},
		{ID: "c", UpdatedAt: day(2)},
	}
}

func TestBootstrap_OrderAndCursor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	release := make(chan struct{})
	var steps []string

	p := Params{
		Name:       "listings",
		UserID:     "u1",
		QueryKey:   "listings",
		CursorBase: "cursor:listings",
		FetchSeed: func(context.Context) ([]record.Row, error) {
			<-release
			steps = append(steps, "fetch")
			return seedRows(), nil
		},
		OnSeeded: func(rows []record.Row) {
			steps = append(steps, "seeded")
			assert.Len(t, rows, 3)
		},
		Collection: preloadFunc(func(ctx context.Context) error {
			steps = append(steps, "preload")
			_, cached := e.cache.GetQueryData("listings")
			assert.True(t, cached, "cache written before preload")
			cur, ok := e.cursors.Read(ctx, "cursor:listings:u1")
			assert.True(t, ok, "cursor written before preload")
			assert.True(t, cur.Equal(day(3)))
			return nil
		}),
	}

	done := make(chan error)
	go func() { done <- e.b.Bootstrap(ctx, p) }()

	time.Sleep(10 * time.Millisecond)
	_, cached := e.cache.GetQueryData("listings")
	assert.False(t, cached, "nothing is cached before the seed resolves")
	_, ok := e.cursors.Read(ctx, "cursor:listings:u1")
	assert.False(t, ok, "no cursor before the seed resolves")
	assert.Equal(t, "u1", e.scope.Current())

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"fetch", "seeded", "preload"}, steps)
	rows, _ := e.cache.GetQueryData("listings")
	assert.Equal(t, seedRows(), rows)
}

func TestBootstrap_SeedFailureTouchesNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	boom := errors.New("seed failed")
	preloaded := false

	err := e.b.Bootstrap(ctx, Params{
		Name:       "images",
		UserID:     "u1",
		QueryKey:   "images",
		CursorBase: "cursor:images",
		FetchSeed:  func(context.Context) ([]record.Row, error) { return nil, boom },
		OnSeeded:   func([]record.Row) { t.Error("OnSeeded must not run") },
		Collection: preloadFunc(func(context.Context) error { preloaded = true; return nil }),
	})
	require.ErrorIs(t, err, boom)

	assert.False(t, preloaded)
	assert.Equal(t, querycache.State{}, e.cache.State("images"))
	all, err := e.repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBootstrap_IdentityChangedDuringSeed(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	err := e.b.Bootstrap(ctx, Params{
		Name:       "lists",
		UserID:     "u1",
		QueryKey:   "lists",
		CursorBase: "cursor:lists",
		FetchSeed: func(context.Context) ([]record.Row, error) {
			e.scope.Set("")
			return seedRows(), nil
		},
	})
	require.ErrorIs(t, err, ErrIdentityChanged)

	_, cached := e.cache.GetQueryData("lists")
	assert.False(t, cached)
	all, _ := e.repo.List(ctx)
	assert.Empty(t, all)
}

func TestBootstrap_EmptySeed(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	err := e.b.Bootstrap(ctx, Params{
		Name:       "references",
		UserID:     "u1",
		QueryKey:   "references",
		CursorBase: "cursor:references",
		FetchSeed:  func(context.Context) ([]record.Row, error) { return []record.Row{}, nil },
	})
	require.NoError(t, err)

	rows, ok := e.cache.GetQueryData("references")
	assert.True(t, ok)
	assert.Empty(t, rows)
	_, ok = e.cursors.Read(ctx, "cursor:references:u1")
	assert.False(t, ok)
}

func TestBootstrapAll_PartialFailure(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	boom := errors.New("lists down")

	mk := func(name string, err error) Params {
		return Params{
			Name:       name,
			UserID:     "u1",
			QueryKey:   name,
			CursorBase: "cursor:" + name,
			FetchSeed: func(context.Context) ([]record.Row, error) {
				if err != nil {
					return nil, err
				}
				return seedRows(), nil
			},
		}
	}

	res := e.b.BootstrapAll(ctx, []Params{mk("listings", nil), mk("lists", boom), mk("images", nil)})

	require.Len(t, res, 3)
	assert.NoError(t, res[0].Err)
	assert.ErrorIs(t, res[1].Err, boom)
	assert.NoError(t, res[2].Err)

	for _, name := range []string{"listings", "images"} {
		_, ok := e.cache.GetQueryData(name)
		assert.True(t, ok, name)
	}
	_, ok := e.cache.GetQueryData("lists")
	assert.False(t, ok)
}

func TestForCollection(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	var sinces []time.Time
	src := collection.SourceFunc(func(_ context.Context, since time.Time) ([]record.Row, error) {
		sinces = append(sinces, since)
		var out []record.Row
		for _, r := range seedRows() {
			if r.UpdatedAt.After(since) {
				out = append(out, r)
			}
		}
		return out, nil
	})
	c := collection.New(e.scope, e.cache, e.cursors, collection.Options{Name: "listings", Source: src})

	p := ForCollection("u1", c)
	assert.Equal(t, "listings", p.Name)
	assert.Equal(t, "cursor:listings", p.CursorBase)

	require.NoError(t, e.b.Bootstrap(ctx, p))

	require.Len(t, sinces, 2, "seed pull then preload pull")
	assert.True(t, sinces[0].IsZero())
	assert.True(t, sinces[1].Equal(day(3)))
	assert.Len(t, c.Rows(), 3)
}
