// Package auth manages the game API credentials: a pluggable token
// store and a refresh coordinator that exchanges a refresh token for a
// new access token when the backend reports expiry.
package auth

import "sync"

// Store holds the access/refresh credential pair. The request pipeline
// only orchestrates token use; persistence is the implementer's choice.
type Store interface {
	// AccessToken returns the current access token, or "" if absent.
	AccessToken() string
	// RefreshToken returns the current refresh token, or "" if absent.
	RefreshToken() string
	// SetTokens atomically replaces both tokens.
	SetTokens(access, refresh string)
	// Clear removes all stored credentials.
	Clear()
}

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AccessToken returns the current access token.
func (s *MemoryStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh token.
func (s *MemoryStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens atomically replaces both tokens.
func (s *MemoryStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

// Clear removes all stored credentials.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
