// Package identity tracks which user the local replica currently belongs to
// and derives per-user storage keys from it.
//
// A Scope is passed explicitly to every component that reads or writes
// per-user state. Keys must be re-derived after each identity change; a key
// cached across a Set call may point at another user's data.
package identity

import (
	"context"
	"sync"
)

// Scope holds the current user id. The empty string means "signed out".
// Last write wins; a Scope is safe for concurrent use.
type Scope struct {
	mu     sync.RWMutex
	userID string
}

// NewScope returns a Scope holding userID.
func NewScope(userID string) *Scope {
	return &Scope{userID: userID}
}

// Set replaces the current identity. Pass "" on sign-out.
func (s *Scope) Set(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// Current returns the current identity, or "" when signed out.
func (s *Scope) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Is reports whether userID is still the current identity.
func (s *Scope) Is(userID string) bool {
	return s.Current() == userID
}

// NamespacedKey derives a storage key for base under the current identity.
func (s *Scope) NamespacedKey(base string) string {
	return KeyFor(base, s.Current())
}

// KeyFor returns base unchanged when userID is empty, otherwise "base:userID".
func KeyFor(base, userID string) string {
	if userID == "" {
		return base
	}
	return base + ":" + userID
}

type ctxKey struct{}

// WithScope returns a child context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Scope stored by WithScope, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Scope)
	return s, ok && s != nil
}
