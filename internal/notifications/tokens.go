package notifications

import "sync"

// TokenStore holds the process-wide push token. Once set it never changes.
// It is shared by the gateway, which writes it, and the backend relay and the
// bridge, which read it.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the token, if one was registered.
func (s *TokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set stores the token. It reports false when token is empty or a different
// token is already stored.
func (s *TokenStore) Set(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token == token
	}
	s.token = token
	return true
}
