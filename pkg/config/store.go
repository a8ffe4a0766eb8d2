// Package config holds the static device configuration and the persisted
// settings kept in a key-value store.
package config

import (
	"sync"
)

// Store is the persisted key-value collaborator. Set only stages a value;
// Commit makes staged values durable.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Commit() error
}

// MemStore is a Store kept in memory.
type MemStore struct {
	// Commits counts successful Commit calls.
	Commits int

	lock      sync.Mutex
	values    map[string][]byte
	committed map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		values:    make(map[string][]byte),
		committed: make(map[string][]byte),
	}
}

// Get implements Store.
func (s *MemStore) Get(key string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.values[key]
	return val, ok
}

// Set implements Store.
func (s *MemStore) Set(key string, value []byte) {
	s.lock.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.lock.Unlock()
}

// Commit implements Store.
func (s *MemStore) Commit() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.committed = make(map[string][]byte, len(s.values))
	for k, v := range s.values {
		s.committed[k] = v
	}
	s.Commits++
	return nil
}

// Committed returns the last committed value of key.
func (s *MemStore) Committed(key string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.committed[key]
	return val, ok
}
