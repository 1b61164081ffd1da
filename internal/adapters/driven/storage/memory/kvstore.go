package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Ensure KeyValueStore implements the interface.
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

type kvEntry struct {
	value   string
	expires time.Time // zero never expires
}

// KeyValueStore is an in-memory implementation of driven.KeyValueStore.
type KeyValueStore struct {
	mu     sync.Mutex
	values map[string]kvEntry
	now    func() time.Time
}

// NewKeyValueStore creates a new in-memory key/value store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string]kvEntry), now: time.Now}
}

// SetClock replaces the time source. Intended for tests.
func (s *KeyValueStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *KeyValueStore) liveLocked(key string) (kvEntry, bool) {
	e, ok := s.values[key]
	if !ok {
		return kvEntry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.values, key)
		return kvEntry{}, false
	}
	return e, true
}

// Get returns the value for key.
func (s *KeyValueStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	return e.value, ok, nil
}

// Set stores value under key without expiry.
func (s *KeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = kvEntry{value: value}
	return nil
}

// Delete removes keys.
func (s *KeyValueStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// AcquireLease stores holder under key if the key is free or expired.
func (s *KeyValueStore) AcquireLease(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.liveLocked(key); held {
		return false, nil
	}
	s.values[key] = kvEntry{value: holder, expires: s.now().Add(ttl)}
	return true, nil
}

// ReleaseLease removes the lease only if holder still owns it.
func (s *KeyValueStore) ReleaseLease(_ context.Context, key, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.liveLocked(key); ok && e.value == holder {
		delete(s.values, key)
	}
	return nil
}
