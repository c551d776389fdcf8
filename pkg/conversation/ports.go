package conversation

import (
	"context"

	"rule-chatbot-be/pkg/store"
)

// UpdateFunc receives a copy of the current session (nil when absent) and
// returns the session to store. Returning nil deletes it.
type UpdateFunc func(current *store.Session) (*store.Session, error)

// SessionStore keeps per-user sessions. Update must be atomic per key.
type SessionStore interface {
	Get(ctx context.Context, userKey string) (*store.Session, bool, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, userKey string) error
	Update(ctx context.Context, userKey string, fn UpdateFunc) error
}

// Resolver expands template placeholders and runs named value providers.
type Resolver interface {
	Resolve(ctx context.Context, template string) string
	Call(ctx context.Context, name string) (string, bool)
}
