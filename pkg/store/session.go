package store

import "time"

// Session represents the conversational state of one user in memory
type Session struct {
	UserKey string `json:"user_key"` // client address or connection id
	Mode    string `json:"mode"`     // "" | "SEARCH" | "AWAITING_QUESTION"

	// Metadata for last interaction
	LastMessage string `json:"last_message,omitempty"`

	// Confirmation flow: a suggested article waiting for a yes/no answer
	PendingSuggestion string `json:"pending_suggestion,omitempty"`
	PreviousMode      string `json:"previous_mode,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ModeNone             = ""
	ModeSearch           = "SEARCH"
	ModeAwaitingQuestion = "AWAITING_QUESTION"
)

// NewSession returns an empty session for userKey in mode none.
func NewSession(userKey string) *Session {
	return &Session{UserKey: userKey, Mode: ModeNone, UpdatedAt: time.Now()}
}

// Clone returns a copy that can be mutated without touching the stored value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// ValidMode reports whether mode is one of the known conversation modes.
func ValidMode(mode string) bool {
	switch mode {
	case ModeNone, ModeSearch, ModeAwaitingQuestion:
		return true
	}
	return false
}
