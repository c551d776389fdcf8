package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"rule-chatbot-be/pkg/search"
	"rule-chatbot-be/pkg/store"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*store.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*store.Session)}
}

func (s *fakeStore) Get(_ context.Context, key string) (*store.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	return sess.Clone(), ok, nil
}

func (s *fakeStore) Save(_ context.Context, session *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserKey] = session.Clone()
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

func (s *fakeStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.sessions[key].Clone())
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.sessions, key)
		return nil
	}
	s.sessions[key] = next.Clone()
	return nil
}

func (s *fakeStore) session(key string) *store.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key].Clone()
}

var errBackendDown = errors.New("backend down")

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*store.Session, bool, error) {
	return nil, false, errBackendDown
}
func (brokenStore) Save(context.Context, *store.Session) error { return errBackendDown }
func (brokenStore) Delete(context.Context, string) error       { return errBackendDown }
func (brokenStore) Update(context.Context, string, UpdateFunc) error {
	return errBackendDown
}

// fakeSearcher returns result for every query and records the queries.
type fakeSearcher struct {
	mu      sync.Mutex
	result  *search.Result
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) *search.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.result
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// fixedClock is 2024-03-15 09:05, a Friday.
func fixedClock() time.Time {
	return time.Date(2024, time.March, 15, 9, 5, 0, 0, time.UTC)
}
