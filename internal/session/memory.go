package session

import (
	"context"
	"sync"
)

// MemoryStore keeps tokens in process memory. Tokens are lost on restart.
type MemoryStore struct {
	areas map[string]map[Kind]string
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		areas: make(map[string]map[Kind]string),
	}
}

// Get returns the token stored for the browser and kind.
func (s *MemoryStore) Get(_ context.Context, browserID string, kind Kind) (string, error) {
	if err := checkKey(browserID, kind); err != nil {
		return "", err
	}

	s.mu.RLock()
	token, ok := s.areas[browserID][kind]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNoToken
	}
	return token, nil
}

// Set stores the token, replacing the previous one of the same kind.
func (s *MemoryStore) Set(_ context.Context, browserID string, kind Kind, token string) error {
	if err := checkEntry(browserID, kind, token); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.areas[browserID]
	if !ok {
		area = make(map[Kind]string, len(Kinds))
		s.areas[browserID] = area
	}
	area[kind] = token
	return nil
}

// Clear removes the token of kind for the browser.
func (s *MemoryStore) Clear(_ context.Context, browserID string, kind Kind) error {
	if err := checkKey(browserID, kind); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.areas[browserID]
	if !ok {
		return nil
	}
	delete(area, kind)
	if len(area) == 0 {
		delete(s.areas, browserID)
	}
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close drops all stored tokens.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.areas = make(map[string]map[Kind]string)
	s.mu.Unlock()
	return nil
}

// Len returns the number of browsers holding at least one token.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.areas)
}
