package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rule-chatbot-be/pkg/knowledge"
	"rule-chatbot-be/pkg/placeholder"
	"rule-chatbot-be/pkg/search"
	"rule-chatbot-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "10.0.0.1"

type harness struct {
	store    *fakeStore
	searcher *fakeSearcher
	in       *Interpreter
}

func newHarness(result *search.Result, opts ...Option) *harness {
	h := &harness{
		store:    newFakeStore(),
		searcher: &fakeSearcher{result: result},
	}
	table := placeholder.NewTable(fixedClock, time.UTC, nil)
	opts = append([]Option{WithChooser(FirstChooser{}), WithClock(fixedClock)}, opts...)
	h.in = NewInterpreter(h.store, placeholder.NewResolver(table), h.searcher, opts...)
	return h
}

func (h *harness) ask(t *testing.T, message string, kb *knowledge.Base) Response {
	t.Helper()
	resp, err := h.in.Interpret(context.Background(), user, message, kb)
	require.NoError(t, err)
	return resp
}

func sampleBase() *knowledge.Base {
	return &knowledge.Base{
		Rules: []knowledge.Rule{
			knowledge.NewRule("salutation", []string{"bonjour"}, []string{"Salut !", "Coucou !"}),
			knowledge.NewRule("jour", []string{"jour"}, []string{"Nous sommes {jour}."}),
			knowledge.NewRule("commandes", []string{"aide", "recherche", "quitter", "paris", "/"}, []string{"règle"}),
		},
		Facts: []knowledge.Fact{
			knowledge.NewFact("heure", "Il est {heure}", placeholder.FuncTime),
			knowledge.NewFact("capitale", "Bamako est la capitale du Mali.", ""),
		},
	}
}

func article(title string) *search.Result {
	return &search.Result{
		Type:      search.KindArticle,
		Title:     title,
		Requested: title,
		Summary:   "Résumé de " + title,
		URL:       "https://fr.wikipedia.org/wiki/" + title,
	}
}

func TestInterpret_CommandBranchIsExclusive(t *testing.T) {
	messages := []string{"/aide", "/recherche", "/quitter", "/Paris", "/", "/ heure", "/bonjour"}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			h := newHarness(article("Paris"))
			resp := h.ask(t, msg, sampleBase())

			assert.NotEqual(t, OutcomeRule, resp.Outcome)
			assert.NotEqual(t, OutcomeFact, resp.Outcome)
			assert.NotEqual(t, OutcomeFallback, resp.Outcome)
			assert.Empty(t, resp.MatchedID)
		})
	}
}

func TestInterpret_Commands(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantOutcome Outcome
		wantText    string
		wantMode    string
		wantSession bool
	}{
		{"help", "/aide", OutcomeHelp, MsgHelp, "", false},
		{"help with casing", "  /AIDE ", OutcomeHelp, MsgHelp, "", false},
		{"search on", "/recherche", OutcomeSearchModeOn, MsgSearchModeOn, store.ModeSearch, true},
		{"search off", "/quitter", OutcomeSearchModeOff, MsgSearchModeOff, "", false},
		{"bare prefix", "/", OutcomeUnknownCommand, MsgUnknownCommand, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			resp := h.ask(t, tt.message, sampleBase())

			assert.Equal(t, tt.wantOutcome, resp.Outcome)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.False(t, resp.Structured())
			assert.Empty(t, h.searcher.calls())

			sess := h.store.session(user)
			if !tt.wantSession {
				assert.Nil(t, sess)
				return
			}
			require.NotNil(t, sess)
			assert.Equal(t, tt.wantMode, sess.Mode)
		})
	}
}

func TestInterpret_HelpIgnoresKnowledge(t *testing.T) {
	for _, kb := range []*knowledge.Base{nil, knowledge.Empty(), sampleBase()} {
		h := newHarness(nil)
		assert.Equal(t, MsgHelp, h.ask(t, "/aide", kb).Text)
	}
}

func TestInterpret_QuitClearsSearchMode(t *testing.T) {
	h := newHarness(article("Paris"))
	h.ask(t, "/recherche", nil)
	require.Equal(t, store.ModeSearch, h.store.session(user).Mode)

	resp := h.ask(t, "/quitter", nil)
	assert.Equal(t, MsgSearchModeOff, resp.Text)
	assert.Nil(t, h.store.session(user))
}

func TestInterpret_CommandSearch(t *testing.T) {
	t.Run("query keeps casing", func(t *testing.T) {
		h := newHarness(article("Tour Eiffel"))
		resp := h.ask(t, "/Tour Eiffel", sampleBase())

		assert.Equal(t, OutcomeCommandSearch, resp.Outcome)
		assert.Equal(t, []string{"Tour Eiffel"}, h.searcher.calls())
		require.True(t, resp.Structured())
		assert.Equal(t, "Tour Eiffel", resp.Search.Title)
		assert.Empty(t, resp.Search.Message)
	})

	t.Run("space after prefix searches the command word", func(t *testing.T) {
		h := newHarness(article("Aide"))
		resp := h.ask(t, "/ aide", sampleBase())

		assert.Equal(t, OutcomeCommandSearch, resp.Outcome)
		assert.Equal(t, []string{"aide"}, h.searcher.calls())
		require.True(t, resp.Structured())
		assert.Equal(t, "Aide", resp.Search.Title)
	})

	t.Run("error result is returned unchanged", func(t *testing.T) {
		notFound := search.NewError("Aucun article trouvé pour 'q'", "https://fr.wikipedia.org/wiki/Special:Search?search=q")
		want := *notFound
		h := newHarness(notFound)

		resp := h.ask(t, "/q", nil)

		require.True(t, resp.Structured())
		assert.Equal(t, want, *resp.Search)
		assert.Nil(t, h.store.session(user))
	})

	t.Run("nil result falls back to nothing found", func(t *testing.T) {
		h := newHarness(nil)
		resp := h.ask(t, "/inconnu", nil)

		assert.False(t, resp.Structured())
		assert.Equal(t, MsgNothingFound, resp.Text)
	})
}

func TestInterpret_SearchModeExit(t *testing.T) {
	tests := []string{"quitter", "  QUITTER  ", "Quitter"}

	for _, exit := range tests {
		t.Run(exit, func(t *testing.T) {
			h := newHarness(article("Paris"))
			h.ask(t, "/recherche", nil)

			resp := h.ask(t, exit, nil)
			assert.Equal(t, OutcomeSearchModeOff, resp.Outcome)
			assert.Equal(t, MsgSearchModeOff, resp.Text)
			assert.Nil(t, h.store.session(user))
			assert.Empty(t, h.searcher.calls())

			// back to normal conversation: the fallback answers, no reminder
			resp = h.ask(t, "xyz_unmatched_text", knowledge.Empty())
			assert.Equal(t, OutcomeFallback, resp.Outcome)
			assert.Contains(t, FallbackMessages, resp.Text)
			assert.NotContains(t, resp.Text, MsgSearchReminder)
		})
	}
}

func TestInterpret_SearchModeAlwaysReminds(t *testing.T) {
	suggested := article("Paris")
	suggested.Requested = "pari"
	suggested.Suggested = true

	tests := []struct {
		name   string
		result *search.Result
	}{
		{"found", article("Paris")},
		{"suggested", suggested},
		{"not found", search.NewError("Aucun article trouvé pour 'pari'", "https://fr.wikipedia.org/wiki/Special:Search?search=pari")},
		{"network failure", search.NewError("Une erreur réseau est survenue. Vérifiez votre connexion.", "")},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var original search.Result
			if tt.result != nil {
				original = *tt.result
			}
			h := newHarness(tt.result)
			h.ask(t, "/recherche", nil)

			// rule keywords must not steal the turn in search mode
			resp := h.ask(t, "Bonjour Paris", sampleBase())

			assert.Equal(t, OutcomeSearchModeQuery, resp.Outcome)
			assert.Equal(t, []string{"Bonjour Paris"}, h.searcher.calls())
			if resp.Structured() {
				assert.Contains(t, resp.Search.Message, MsgSearchReminder)
				assert.Equal(t, tt.result.Type, resp.Search.Type)
				assert.Equal(t, tt.result.Title, resp.Search.Title)
			} else {
				assert.Contains(t, resp.Text, MsgSearchReminder)
			}
			if tt.result != nil {
				assert.Equal(t, original, *tt.result, "searcher result must not be mutated")
			}
			assert.Equal(t, store.ModeSearch, h.store.session(user).Mode)
		})
	}
}

func TestInterpret_AwaitingQuestion(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.store.Save(context.Background(), &store.Session{UserKey: user, Mode: store.ModeAwaitingQuestion}))

	resp := h.ask(t, "bonjour", sampleBase())

	assert.Equal(t, OutcomeListening, resp.Outcome)
	assert.Equal(t, MsgListening, resp.Text)
	assert.Nil(t, h.store.session(user))

	// the next turn is ordinary
	assert.Equal(t, OutcomeRule, h.ask(t, "bonjour", sampleBase()).Outcome)
}

func TestInterpret_RuleTieBreak(t *testing.T) {
	kb := &knowledge.Base{Rules: []knowledge.Rule{
		knowledge.NewRule("R1", []string{"bonjour"}, []string{"r1"}),
		knowledge.NewRule("R2", []string{"jour"}, []string{"r2"}),
	}}

	h := newHarness(nil)
	resp := h.ask(t, "bonjour", kb)

	assert.Equal(t, OutcomeRule, resp.Outcome)
	assert.Equal(t, "R1", resp.MatchedID)
	assert.Equal(t, "r1", resp.Text)
}

func TestInterpret_RuleMatching(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantID  string
		want    string
	}{
		{"case insensitive", "BONJOUR à tous", "salutation", "Salut !"},
		{"substring", "rebonjour", "salutation", "Salut !"},
		{"placeholder resolved", "quel jour", "jour", "Nous sommes vendredi."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil)
			resp := h.ask(t, tt.message, sampleBase())

			assert.Equal(t, OutcomeRule, resp.Outcome)
			assert.Equal(t, tt.wantID, resp.MatchedID)
			assert.Equal(t, tt.want, resp.Text)
		})
	}
}

func TestInterpret_TemplateChoice(t *testing.T) {
	h := newHarness(nil, WithChooser(ChooserFunc(func(n int) int { return n - 1 })))
	resp := h.ask(t, "bonjour", sampleBase())

	assert.Equal(t, "Coucou !", resp.Text)
}

func TestInterpret_Facts(t *testing.T) {
	t.Run("function fact", func(t *testing.T) {
		kb := &knowledge.Base{Facts: []knowledge.Fact{
			knowledge.NewFact("heure", "Il est {heure}", placeholder.FuncTime),
		}}
		h := newHarness(nil)
		resp := h.ask(t, "quelle heure", kb)

		assert.Equal(t, OutcomeFact, resp.Outcome)
		assert.Equal(t, "heure", resp.MatchedID)
		assert.Equal(t, "Il est 09:05", resp.Text)
	})

	t.Run("static fact", func(t *testing.T) {
		h := newHarness(nil)
		resp := h.ask(t, "La capitale ?", sampleBase())

		assert.Equal(t, OutcomeFact, resp.Outcome)
		assert.Equal(t, "Bamako est la capitale du Mali.", resp.Text)
	})

	t.Run("rules win over facts", func(t *testing.T) {
		kb := &knowledge.Base{
			Rules: []knowledge.Rule{knowledge.NewRule("r", []string{"heure"}, []string{"règle"})},
			Facts: []knowledge.Fact{knowledge.NewFact("heure", "fait", "")},
		}
		h := newHarness(nil)
		assert.Equal(t, OutcomeRule, h.ask(t, "heure", kb).Outcome)
	})

	t.Run("first fact wins", func(t *testing.T) {
		kb := &knowledge.Base{Facts: []knowledge.Fact{
			knowledge.NewFact("mali", "premier", ""),
			knowledge.NewFact("bamako", "second", ""),
		}}
		h := newHarness(nil)
		assert.Equal(t, "premier", h.ask(t, "bamako au mali", kb).Text)
	})
}

func TestInterpret_Fallback(t *testing.T) {
	h := newHarness(nil)
	resp := h.ask(t, "xyz_unmatched_text", knowledge.Empty())

	assert.Equal(t, OutcomeFallback, resp.Outcome)
	assert.Contains(t, FallbackMessages, resp.Text)
	assert.Empty(t, h.searcher.calls())

	sess := h.store.session(user)
	require.NotNil(t, sess)
	assert.Equal(t, "xyz_unmatched_text", sess.LastMessage)
	assert.Equal(t, store.ModeNone, sess.Mode)
	assert.Equal(t, fixedClock(), sess.UpdatedAt)

	// a history-only session does not take over the next turn
	assert.Equal(t, OutcomeRule, h.ask(t, "bonjour", sampleBase()).Outcome)
}

func TestInterpret_StoreFailure(t *testing.T) {
	in := NewInterpreter(brokenStore{}, placeholder.NewResolver(placeholder.NewTable(fixedClock, time.UTC, nil)), &fakeSearcher{})

	for _, msg := range []string{"/recherche", "/quitter", "bonjour", "xyz"} {
		_, err := in.Interpret(context.Background(), user, msg, sampleBase())
		assert.ErrorIs(t, err, errBackendDown, msg)
	}

	// stateless branches still answer
	resp, err := in.Interpret(context.Background(), user, "/aide", nil)
	require.NoError(t, err)
	assert.Equal(t, MsgHelp, resp.Text)
}

func TestInterpret_ConfirmationFlow(t *testing.T) {
	suggestion := func() *search.Result {
		r := article("Paris")
		r.Requested = "Pari"
		r.Suggested = true
		return r
	}

	t.Run("suggestion asks for confirmation", func(t *testing.T) {
		h := newHarness(suggestion(), WithConfirmationFlow(true))
		resp := h.ask(t, "/Pari", nil)

		require.True(t, resp.Structured())
		assert.Contains(t, resp.Search.Message, fmt.Sprintf(MsgSuggestionPrompt, "Paris"))
		sess := h.store.session(user)
		require.NotNil(t, sess)
		assert.Equal(t, "Paris", sess.PendingSuggestion)
		assert.Equal(t, store.ModeNone, sess.Mode)
	})

	t.Run("yes then question", func(t *testing.T) {
		h := newHarness(suggestion(), WithConfirmationFlow(true))
		h.ask(t, "/Pari", nil)

		resp := h.ask(t, "Oui", sampleBase())
		assert.Equal(t, OutcomeConfirmation, resp.Outcome)
		assert.Equal(t, fmt.Sprintf(MsgConfirmSearch, "Paris"), resp.Text)
		assert.Equal(t, store.ModeAwaitingQuestion, h.store.session(user).Mode)

		resp = h.ask(t, "bonjour", sampleBase())
		assert.Equal(t, MsgListening, resp.Text)
		assert.Nil(t, h.store.session(user))
	})

	t.Run("no clears the session", func(t *testing.T) {
		h := newHarness(suggestion(), WithConfirmationFlow(true))
		h.ask(t, "/Pari", nil)

		resp := h.ask(t, "non", sampleBase())
		assert.Equal(t, MsgDecline, resp.Text)
		assert.Nil(t, h.store.session(user))
	})

	t.Run("yes without a search context is generic", func(t *testing.T) {
		h := newHarness(nil, WithConfirmationFlow(true))
		require.NoError(t, h.store.Save(context.Background(), &store.Session{UserKey: user, PendingSuggestion: "Paris"}))

		resp := h.ask(t, "ok", nil)
		assert.Equal(t, MsgConfirmGeneric, resp.Text)
		assert.Empty(t, h.store.session(user).PendingSuggestion)
	})

	t.Run("other answers drop the suggestion", func(t *testing.T) {
		h := newHarness(suggestion(), WithConfirmationFlow(true))
		h.ask(t, "/Pari", nil)

		resp := h.ask(t, "bonjour", sampleBase())
		assert.Equal(t, OutcomeRule, resp.Outcome)
		assert.Empty(t, h.store.session(user).PendingSuggestion)
	})

	t.Run("disabled by default", func(t *testing.T) {
		h := newHarness(suggestion())
		resp := h.ask(t, "/Pari", nil)
		require.True(t, resp.Structured())
		assert.Empty(t, resp.Search.Message)
		assert.Nil(t, h.store.session(user))

		assert.Equal(t, OutcomeFallback, h.ask(t, "oui", knowledge.Empty()).Outcome)
	})

	t.Run("search mode is left alone", func(t *testing.T) {
		h := newHarness(suggestion(), WithConfirmationFlow(true))
		h.ask(t, "/recherche", nil)
		h.ask(t, "/Pari", nil)

		sess := h.store.session(user)
		assert.Equal(t, store.ModeSearch, sess.Mode)
		assert.Empty(t, sess.PendingSuggestion)
	})
}

func TestInterpret_ConcurrentUsers(t *testing.T) {
	h := newHarness(article("Paris"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("user-%d", i%5)
			_, err := h.in.Interpret(context.Background(), key, "/recherche", nil)
			assert.NoError(t, err)
			_, err = h.in.Interpret(context.Background(), key, "Paris", nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		sess := h.store.session(fmt.Sprintf("user-%d", i))
		require.NotNil(t, sess)
		assert.Equal(t, store.ModeSearch, sess.Mode)
	}
}
