// Package querycache is a generic, process-wide query cache that the UI reads
// and the sync layer writes. Entries carry a stale mark set by Invalidate and
// cleared by a successful Fetch or a direct write.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrNoFetcher = errors.New("no fetcher registered for query key")

// Fetcher loads the value for key. A fetcher may write the cache itself
// (through SetQueryData or Update); Fetch then keeps that write instead of
// storing the returned value.
type Fetcher[K comparable, V any] func(ctx context.Context, key K) (V, error)

// State describes an entry without exposing its value.
type State struct {
	Exists    bool
	Stale     bool
	Fetching  bool
	UpdatedAt time.Time
	Err       error
}

type EventKind int

const (
	EventSet EventKind = iota
	EventInvalidated
	EventRemoved
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventSet:
		return "set"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to subscribers after the cache has changed. Key is the
// zero value for EventCleared.
type Event[K comparable] struct {
	Key  K
	Kind EventKind
}

type entry[V any] struct {
	value     V
	exists    bool
	stale     bool
	fetching  int
	gen       uint64
	updatedAt time.Time
	err       error
}

// Cache maps typed keys to typed values. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[V]
	fetchers map[K]Fetcher[K, V]
	subs     map[int]func(Event[K])
	nextSub  int
	group    singleflight.Group
	now      func() time.Time
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*entry[V]),
		fetchers: make(map[K]Fetcher[K, V]),
		subs:     make(map[int]func(Event[K])),
		now:      time.Now,
	}
}

func (c *Cache[K, V]) entryLocked(key K) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache[K, V]) storeLocked(key K, v V) {
	e := c.entryLocked(key)
	e.value = v
	e.exists = true
	e.stale = false
	e.err = nil
	e.gen++
	e.updatedAt = c.now()
}

// SetQueryData writes v under key verbatim, replacing whatever was there,
// and clears the stale mark.
func (c *Cache[K, V]) SetQueryData(key K, v V) {
	c.mu.Lock()
	c.storeLocked(key, v)
	c.mu.Unlock()
	c.notify(Event[K]{Key: key, Kind: EventSet})
}

// Update atomically replaces the value under key with fn(old, exists) and
// returns the new value.
func (c *Cache[K, V]) Update(key K, fn func(old V, exists bool) V) V {
	c.mu.Lock()
	e := c.entryLocked(key)
	v := fn(e.value, e.exists)
	c.storeLocked(key, v)
	c.mu.Unlock()
	c.notify(Event[K]{Key: key, Kind: EventSet})
	return v
}

// GetQueryData returns the value under key, stale or not.
func (c *Cache[K, V]) GetQueryData(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.exists {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) State(key K) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{}
	}
	return State{
		Exists:    e.exists,
		Stale:     e.stale,
		Fetching:  e.fetching > 0,
		UpdatedAt: e.updatedAt,
		Err:       e.err,
	}
}

// Invalidate marks key stale. The value stays readable until the next
// successful fetch replaces it.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
	}
	c.mu.Unlock()
	if ok {
		c.notify(Event[K]{Key: key, Kind: EventInvalidated})
	}
}

// Register installs the fetcher used by Fetch for key.
func (c *Cache[K, V]) Register(key K, f Fetcher[K, V]) {
	c.mu.Lock()
	c.fetchers[key] = f
	c.mu.Unlock()
}

// Fetch runs the registered fetcher for key. Concurrent calls for the same
// key share one fetcher invocation. On success the fetched value is stored
// unless the entry was written while the fetch was in flight; on failure the
// previous value is kept and the error is recorded in State.
func (c *Cache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	f, ok := c.fetchers[key]
	c.mu.Unlock()
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %v", ErrNoFetcher, key)
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		c.mu.Lock()
		e := c.entryLocked(key)
		e.fetching++
		gen := e.gen
		c.mu.Unlock()

		v, err := f(ctx, key)

		c.mu.Lock()
		e = c.entryLocked(key)
		e.fetching--
		stored := false
		if err != nil {
			e.err = err
		} else if e.gen == gen {
			c.storeLocked(key, v)
			stored = true
		} else {
			e.stale = false
			e.err = nil
			v = e.value
		}
		c.mu.Unlock()

		if stored {
			c.notify(Event[K]{Key: key, Kind: EventSet})
		}
		return v, err
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Remove drops the entry under key. Its fetcher stays registered.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.notify(Event[K]{Key: key, Kind: EventRemoved})
	}
}

// Clear drops every entry. Registered fetchers are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]*entry[V])
	c.mu.Unlock()
	var zero K
	c.notify(Event[K]{Key: zero, Kind: EventCleared})
}

// Keys returns the keys currently holding a value, in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, len(c.entries))
	for k, e := range c.entries {
		if e.exists {
			keys = append(keys, k)
		}
	}
	return keys
}

// Subscribe registers fn for change events and returns a function that
// unregisters it. fn runs synchronously on the writer's goroutine, outside
// the cache lock.
func (c *Cache[K, V]) Subscribe(fn func(Event[K])) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Cache[K, V]) notify(ev Event[K]) {
	c.mu.Lock()
	fns := make([]func(Event[K]), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
