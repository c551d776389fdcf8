package knowledge

import (
	"sync"
	"sync/atomic"
)

// Store holds the current Base. Readers never observe a partially loaded
// base: Reload builds a fresh one and swaps the pointer.
type Store struct {
	loader  *Loader
	current atomic.Pointer[Base]

	mu        sync.Mutex // serializes reloads and listener registration
	listeners []func(*Base)
}

// NewStore loads the knowledge directory once and returns a ready store.
func NewStore(loader *Loader) (*Store, error) {
	s := &Store{loader: loader}
	base, err := loader.Load()
	if err != nil {
		return nil, err
	}
	s.current.Store(base)
	return s, nil
}

// NewStaticStore wraps an already built base. Reload is a no-op.
func NewStaticStore(base *Base) *Store {
	s := &Store{}
	if base == nil {
		base = Empty()
	}
	s.current.Store(base)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Base {
	return s.current.Load()
}

// Reload re-reads the directory. On error the previous snapshot stays active.
func (s *Store) Reload() (*Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loader == nil {
		return s.current.Load(), nil
	}
	base, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	s.current.Store(base)
	for _, fn := range s.listeners {
		fn(base)
	}
	return base, nil
}

// OnReload registers fn to be called after every successful reload.
func (s *Store) OnReload(fn func(*Base)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Dir returns the watched directory, empty for static stores.
func (s *Store) Dir() string {
	if s.loader == nil {
		return ""
	}
	return s.loader.Dir
}
