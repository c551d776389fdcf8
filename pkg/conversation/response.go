package conversation

import "rule-chatbot-be/pkg/search"

// Outcome names the pipeline branch that produced a response.
type Outcome string

const (
	OutcomeSearchModeOn    Outcome = "search_mode_on"
	OutcomeSearchModeOff   Outcome = "search_mode_off"
	OutcomeHelp            Outcome = "help"
	OutcomeUnknownCommand  Outcome = "unknown_command"
	OutcomeCommandSearch   Outcome = "command_search"
	OutcomeSearchModeQuery Outcome = "search_mode_query"
	OutcomeListening       Outcome = "awaiting_question"
	OutcomeConfirmation    Outcome = "confirmation"
	OutcomeRule            Outcome = "rule"
	OutcomeFact            Outcome = "fact"
	OutcomeFallback        Outcome = "fallback"
)

// Response is either plain text or a structured search result.
type Response struct {
	Text   string
	Search *search.Result

	Outcome   Outcome
	MatchedID string // rule id or fact key when Outcome is rule/fact
}

// Structured reports whether the response carries a search result.
func (r Response) Structured() bool {
	return r.Search != nil
}

func textResponse(outcome Outcome, text string) Response {
	return Response{Text: text, Outcome: outcome}
}
