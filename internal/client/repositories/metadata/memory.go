package metadata

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepository is a process-local Repository. Values are copied on the
// way in and out so callers cannot mutate stored bytes.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (r *MemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.data[key] = append([]byte(nil), value...)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) DeleteBySuffix(_ context.Context, suffix string) (int64, error) {
	if suffix == "" {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.data {
		if strings.HasSuffix(k, suffix) {
			delete(r.data, k)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) List(_ context.Context) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]byte, len(r.data))
	for k, v := range r.data {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.data = make(map[string][]byte)
	r.mu.Unlock()
	return nil
}
