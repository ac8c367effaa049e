package pagination

import "sync"

// Store holds the current PageConfig. Patches are merged shallowly and the
// result replaces the previous value as a whole, so a pagination pass that
// read Current keeps a consistent snapshot.
type Store struct {
	mu  sync.RWMutex
	cur PageConfig
}

// NewStore returns a store starting at initial.
func NewStore(initial PageConfig) *Store {
	return &Store{cur: initial}
}

// Current returns the configuration in effect.
func (s *Store) Current() PageConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Apply merges p into the current configuration and returns the result.
func (s *Store) Apply(p Patch) PageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Merge(s.cur, p)
	return s.cur
}

// Replace swaps in cfg wholesale.
func (s *Store) Replace(cfg PageConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = cfg
}
