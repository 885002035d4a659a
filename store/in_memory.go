package store

import (
	"context"
	"sync"
	"time"
)

type scalarEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// InMemoryStore is a mutex-guarded Store for tests and single-process
// deployments. Reads return copies so callers never alias internal slices or
// maps. TTLs are honored lazily on access.
type InMemoryStore struct {
	mu      sync.RWMutex
	scalars map[string]scalarEntry
	lists   map[string][]string
	sets    map[string]map[string]struct{}
	hashes  map[string]map[string]string
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		scalars: map[string]scalarEntry{},
		lists:   map[string][]string{},
		sets:    map[string]map[string]struct{}{},
		hashes:  map[string]map[string]string{},
	}
}

// Set stores a scalar value with an optional TTL.
func (s *InMemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := scalarEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.scalars[key] = e
	return nil
}

// Get returns the value and whether the key exists.
func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.scalars[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.scalars, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Delete removes a key of any shape.
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scalars, key)
	delete(s.lists, key)
	delete(s.sets, key)
	delete(s.hashes, key)
	return nil
}

// Exists reports whether the key is present in any shape.
func (s *InMemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok, _ := s.Get(ctx, key); ok {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.lists[key]; ok {
		return true, nil
	}
	if _, ok := s.sets[key]; ok {
		return true, nil
	}
	_, ok := s.hashes[key]
	return ok, nil
}

// ListPush appends values to the tail of a list.
func (s *InMemoryStore) ListPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

// ListRange returns list entries from start to stop inclusive, Redis style:
// negative indices count from the tail.
func (s *InMemoryStore) ListRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[key]
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		return nil, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, list[lo:hi+1])
	return out, nil
}

// ListTrim keeps only entries from start to stop inclusive.
func (s *InMemoryStore) ListTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = append([]string(nil), list[lo:hi+1]...)
	return nil
}

func normalizeRange(start, stop, length int64) (int64, int64, bool) {
	if length == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 0, 0, false
	}
	return start, stop, true
}

// SetAdd adds members to an unordered set.
func (s *InMemoryStore) SetAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = map[string]struct{}{}
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

// SetMembers returns all members of a set in unspecified order.
func (s *InMemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

// SetRemove removes members from a set.
func (s *InMemoryStore) SetRemove(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

// HashSet stores fields of a hash.
func (s *InMemoryStore) HashSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = map[string]string{}
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HashGetAll returns a copy of all fields of a hash.
func (s *InMemoryStore) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.hashes[key]
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// HashGet returns one field of a hash and whether it exists.
func (s *InMemoryStore) HashGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}
