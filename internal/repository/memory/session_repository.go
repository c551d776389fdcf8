package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"rule-chatbot-be/pkg/conversation"
	"rule-chatbot-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

const lockStripes = 64

// SessionRepository keeps sessions in process memory. Entries never expire;
// they are removed only by Delete or an Update returning nil.
type SessionRepository struct {
	cache *cache.Cache
	locks [lockStripes]sync.Mutex
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepository) lockFor(userKey string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userKey))
	return &r.locks[h.Sum32()%lockStripes]
}

func (r *SessionRepository) get(userKey string) (*store.Session, bool) {
	if x, found := r.cache.Get(userKey); found {
		return x.(*store.Session).Clone(), true
	}
	return nil, false
}

func (r *SessionRepository) Get(_ context.Context, userKey string) (*store.Session, bool, error) {
	s, ok := r.get(userKey)
	return s, ok, nil
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	mu := r.lockFor(session.UserKey)
	mu.Lock()
	defer mu.Unlock()
	r.cache.Set(session.UserKey, session.Clone(), cache.NoExpiration)
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, userKey string) error {
	mu := r.lockFor(userKey)
	mu.Lock()
	defer mu.Unlock()
	r.cache.Delete(userKey)
	return nil
}

// Update runs fn under the stripe lock of userKey.
func (r *SessionRepository) Update(_ context.Context, userKey string, fn conversation.UpdateFunc) error {
	mu := r.lockFor(userKey)
	mu.Lock()
	defer mu.Unlock()

	current, found := r.get(userKey)
	next, err := fn(current)
	if err != nil {
		return err
	}
	switch {
	case next != nil:
		next.UserKey = userKey
		r.cache.Set(userKey, next.Clone(), cache.NoExpiration)
	case found:
		r.cache.Delete(userKey)
	}
	return nil
}

// Count returns the number of live sessions.
func (r *SessionRepository) Count(_ context.Context) (int, error) {
	return r.cache.ItemCount(), nil
}
