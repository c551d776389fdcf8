package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rule-chatbot-be/pkg/conversation"
	"rule-chatbot-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 10

var (
	ErrUpdateConflict = errors.New("redisstore: too many concurrent updates")
	ErrInvalidSession = errors.New("redisstore: stored session is invalid")
)

// SessionRepository stores sessions as JSON strings so several server
// instances share conversation state. Keys carry no TTL.
type SessionRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewSessionRepository(rdb *redis.Client, prefix string) *SessionRepository {
	if prefix == "" {
		prefix = "chatbot:session:"
	}
	return &SessionRepository{rdb: rdb, prefix: prefix}
}

func (r *SessionRepository) key(userKey string) string {
	return r.prefix + userKey
}

func (r *SessionRepository) Get(ctx context.Context, userKey string) (*store.Session, bool, error) {
	return r.read(ctx, r.rdb, userKey)
}

func (r *SessionRepository) read(ctx context.Context, c redis.Cmdable, userKey string) (*store.Session, bool, error) {
	raw, err := c.Get(ctx, r.key(userKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}
	s, err := decodeSession(raw)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// decodeSession rejects values whose mode is not a known conversation mode.
func decodeSession(raw []byte) (*store.Session, error) {
	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !store.ValidMode(s.Mode) {
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidSession, s.Mode)
	}
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(session.UserKey), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userKey string) error {
	if err := r.rdb.Del(ctx, r.key(userKey)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Update is an optimistic WATCH/MULTI transaction, retried when another
// writer touched the key in between.
func (r *SessionRepository) Update(ctx context.Context, userKey string, fn conversation.UpdateFunc) error {
	key := r.key(userKey)

	txf := func(tx *redis.Tx) error {
		current, found, err := r.read(ctx, tx, userKey)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		var data []byte
		if next != nil {
			next.UserKey = userKey
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
		} else if !found {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrUpdateConflict
}

// Count returns the number of stored sessions.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan sessions: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}
