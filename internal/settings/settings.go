// Package settings holds runtime-overridable configuration. Request handlers
// change values here instead of mutating the process environment.
package settings

import (
	"strings"
	"sync"
)

type Store struct {
	mu        sync.RWMutex
	searchKey string
	// per-user overrides; an empty user falls back to the process default
	userSearchKeys map[string]string
}

func New(defaultSearchKey string) *Store {
	return &Store{
		searchKey:      strings.TrimSpace(defaultSearchKey),
		userSearchKeys: map[string]string{},
	}
}

// SearchKey returns the effective search-provider key for user.
func (s *Store) SearchKey(user string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k, ok := s.userSearchKeys[strings.TrimSpace(user)]; ok && k != "" {
		return k
	}
	return s.searchKey
}

// SetSearchKey overrides the key for one user, or the default when user is empty.
func (s *Store) SetSearchKey(user, key string) {
	user = strings.TrimSpace(user)
	key = strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == "" {
		s.searchKey = key
		return
	}
	if key == "" {
		delete(s.userSearchKeys, user)
		return
	}
	s.userSearchKeys[user] = key
}

// SearchKeyFunc returns an accessor bound to user, for components that only
// need to read the key.
func (s *Store) SearchKeyFunc(user string) func() string {
	return func() string { return s.SearchKey(user) }
}
