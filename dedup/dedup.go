// Package dedup suppresses repeated emissions of identical events within one
// page-load lifetime.
package dedup

import "sync"

// Set remembers canonical keys. It only grows until Reset, which the host
// page driver calls when the main frame navigates.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates an empty Set.
func New() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Admit records key and reports whether it was new.
func (s *Set) Admit(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Forget drops key so a later Admit of it succeeds again.
func (s *Set) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

// Len returns the number of keys seen.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Reset forgets every key.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}
