package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rule-chatbot-be/pkg/knowledge"
	"rule-chatbot-be/pkg/search"
	"rule-chatbot-be/pkg/store"
)

// Interpreter turns a user message plus the user's session into a reply.
//
// Branches are tried in a fixed priority order and the first one that
// answers wins:
//  1. commands ("/recherche", "/quitter", "/aide", anything else is searched)
//  2. continuation of an active session (search mode, awaiting question,
//     and the optional yes/no confirmation flow)
//  3. keyword rules, in knowledge file order
//  4. facts, in load order
//  5. a random reformulation prompt
//
// Session changes go through SessionStore.Update so that concurrent requests
// of the same user cannot lose updates. Network calls run outside Update.
type Interpreter struct {
	sessions SessionStore
	resolver Resolver
	searcher search.Searcher
	chooser  Chooser
	now      func() time.Time

	confirmationFlow bool
}

type Option func(*Interpreter)

// WithChooser replaces the random template selector.
func WithChooser(c Chooser) Option {
	return func(in *Interpreter) { in.chooser = c }
}

// WithConfirmationFlow enables the yes/no follow-up on suggested articles.
func WithConfirmationFlow(enabled bool) Option {
	return func(in *Interpreter) { in.confirmationFlow = enabled }
}

// WithClock sets the clock used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

func NewInterpreter(sessions SessionStore, resolver Resolver, searcher search.Searcher, opts ...Option) *Interpreter {
	in := &Interpreter{
		sessions: sessions,
		resolver: resolver,
		searcher: searcher,
		chooser:  RandomChooser{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Interpret answers message for userKey using kb. The only error returned is
// a failure of the session store itself; every domain failure is a Response.
func (in *Interpreter) Interpret(ctx context.Context, userKey, message string, kb *knowledge.Base) (Response, error) {
	msg := strings.TrimSpace(message)
	lower := strings.ToLower(msg)

	if cmd, ok := ParseCommand(msg); ok {
		return in.handleCommand(ctx, userKey, cmd)
	}

	if resp, handled, err := in.continueSession(ctx, userKey, msg, lower); err != nil || handled {
		return resp, err
	}

	if rule, ok := kb.MatchRule(lower); ok {
		template := rule.Templates[in.chooser.Choose(len(rule.Templates))]
		return Response{
			Text:      in.resolver.Resolve(ctx, template),
			Outcome:   OutcomeRule,
			MatchedID: rule.ID,
		}, nil
	}

	if fact, ok := kb.MatchFact(lower); ok {
		return Response{
			Text:      in.formatFact(ctx, fact),
			Outcome:   OutcomeFact,
			MatchedID: fact.Key,
		}, nil
	}

	return in.fallback(ctx, userKey, msg)
}

func (in *Interpreter) handleCommand(ctx context.Context, userKey string, cmd Command) (Response, error) {
	switch cmd.Name {
	case CommandSearch:
		session := store.NewSession(userKey)
		session.Mode = store.ModeSearch
		session.UpdatedAt = in.now()
		if err := in.sessions.Save(ctx, session); err != nil {
			return Response{}, fmt.Errorf("save session: %w", err)
		}
		return textResponse(OutcomeSearchModeOn, MsgSearchModeOn), nil

	case CommandQuit:
		if err := in.sessions.Delete(ctx, userKey); err != nil {
			return Response{}, fmt.Errorf("delete session: %w", err)
		}
		return textResponse(OutcomeSearchModeOff, MsgSearchModeOff), nil

	case CommandHelp:
		return textResponse(OutcomeHelp, MsgHelp), nil
	}

	if cmd.IsEmpty() {
		return textResponse(OutcomeUnknownCommand, MsgUnknownCommand), nil
	}

	result := in.searcher.Search(ctx, cmd.Text)
	if result == nil {
		return textResponse(OutcomeCommandSearch, MsgNothingFound), nil
	}

	if in.confirmationFlow && result.Suggested {
		result = result.Clone()
		result.AppendMessage(fmt.Sprintf(MsgSuggestionPrompt, result.Title))
		if err := in.rememberSuggestion(ctx, userKey, result.Title); err != nil {
			return Response{}, err
		}
	}
	return Response{Search: result, Outcome: OutcomeCommandSearch}, nil
}

// rememberSuggestion arms the confirmation flow on a mode-none session.
func (in *Interpreter) rememberSuggestion(ctx context.Context, userKey, title string) error {
	err := in.sessions.Update(ctx, userKey, func(cur *store.Session) (*store.Session, error) {
		if cur != nil && cur.Mode != store.ModeNone {
			return cur, nil
		}
		next := cur
		if next == nil {
			next = store.NewSession(userKey)
		}
		next.PendingSuggestion = title
		next.PreviousMode = store.ModeSearch
		next.UpdatedAt = in.now()
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

type continuation int

const (
	contNone continuation = iota
	contExitSearch
	contSearch
	contListen
	contConfirmSearch
	contConfirmGeneric
	contDecline
)

func (in *Interpreter) continueSession(ctx context.Context, userKey, msg, lower string) (Response, bool, error) {
	snapshot, found, err := in.sessions.Get(ctx, userKey)
	if err != nil {
		return Response{}, false, fmt.Errorf("get session: %w", err)
	}
	if !found || !in.continues(snapshot) {
		return Response{}, false, nil
	}

	action := contNone
	var suggestion string

	err = in.sessions.Update(ctx, userKey, func(cur *store.Session) (*store.Session, error) {
		action = contNone
		if cur == nil {
			return nil, nil
		}

		switch cur.Mode {
		case store.ModeSearch:
			if lower == ExitKeyword {
				action = contExitSearch
				return nil, nil
			}
			action = contSearch
			return cur, nil
		case store.ModeAwaitingQuestion:
			action = contListen
			return nil, nil
		}

		if !in.confirmationFlow || cur.PendingSuggestion == "" {
			return cur, nil
		}

		next := cur.Clone()
		next.PendingSuggestion = ""
		next.PreviousMode = ""
		next.UpdatedAt = in.now()

		switch {
		case isAffirmative(lower):
			if cur.PreviousMode == store.ModeSearch {
				action = contConfirmSearch
				suggestion = cur.PendingSuggestion
				next.Mode = store.ModeAwaitingQuestion
			} else {
				action = contConfirmGeneric
			}
			return next, nil
		case isNegative(lower):
			action = contDecline
			return nil, nil
		}
		// any other answer drops the suggestion and lets the pipeline continue
		return next, nil
	})
	if err != nil {
		return Response{}, false, fmt.Errorf("update session: %w", err)
	}

	switch action {
	case contExitSearch:
		return textResponse(OutcomeSearchModeOff, MsgSearchModeOff), true, nil
	case contSearch:
		return in.searchInMode(ctx, msg), true, nil
	case contListen:
		return textResponse(OutcomeListening, MsgListening), true, nil
	case contConfirmSearch:
		return textResponse(OutcomeConfirmation, fmt.Sprintf(MsgConfirmSearch, suggestion)), true, nil
	case contConfirmGeneric:
		return textResponse(OutcomeConfirmation, MsgConfirmGeneric), true, nil
	case contDecline:
		return textResponse(OutcomeConfirmation, MsgDecline), true, nil
	}
	return Response{}, false, nil
}

// continues reports whether cur can take over the turn. Sessions in mode
// none that only carry history fall through without a write.
func (in *Interpreter) continues(cur *store.Session) bool {
	if cur.Mode != store.ModeNone {
		return true
	}
	return in.confirmationFlow && cur.PendingSuggestion != ""
}

// searchInMode runs a search-mode query and reminds the user how to leave.
func (in *Interpreter) searchInMode(ctx context.Context, query string) Response {
	result := in.searcher.Search(ctx, query)
	if result == nil {
		return textResponse(OutcomeSearchModeQuery, MsgNothingFound+MsgSearchReminder)
	}
	result = result.Clone()
	result.AppendMessage(MsgSearchReminder)
	return Response{Search: result, Outcome: OutcomeSearchModeQuery}
}

// formatFact fills "{<key>}" in the fact response with its provider value.
// Facts without a provider are returned verbatim.
func (in *Interpreter) formatFact(ctx context.Context, fact *knowledge.Fact) string {
	if fact.Function == "" {
		return fact.Response
	}
	value, ok := in.resolver.Call(ctx, fact.Function)
	if !ok {
		return fact.Response
	}
	return strings.ReplaceAll(fact.Response, "{"+fact.Key+"}", value)
}

// fallback records the message on the session without touching its mode.
func (in *Interpreter) fallback(ctx context.Context, userKey, msg string) (Response, error) {
	err := in.sessions.Update(ctx, userKey, func(cur *store.Session) (*store.Session, error) {
		next := cur
		if next == nil {
			next = store.NewSession(userKey)
		}
		next.LastMessage = msg
		next.UpdatedAt = in.now()
		return next, nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("update session: %w", err)
	}
	return textResponse(OutcomeFallback, FallbackMessages[in.chooser.Choose(len(FallbackMessages))]), nil
}
