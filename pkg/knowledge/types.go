package knowledge

import (
	"errors"
	"time"
)

var (
	ErrRulesFileMissing = errors.New("knowledge: rules file not found")
	ErrEmptyTemplates   = errors.New("knowledge: rule has keywords but no response templates")
	ErrUnknownFunction  = errors.New("knowledge: unknown dynamic value function")
	ErrMissingResponse  = errors.New("knowledge: fact has no response")
)

// Rule maps trigger keywords to candidate response templates.
type Rule struct {
	ID        string
	Keywords  []string // lower-cased, trimmed, never empty strings
	Templates []string
}

// Fact maps a literal trigger key to a single response. When Function is set
// the response is formatted with the value of that provider.
type Fact struct {
	Key      string
	Response string
	Function string

	keyLower string
}

// Base is an immutable snapshot of the knowledge directory. Rules and Facts
// keep the order in which they appear on disk.
type Base struct {
	Rules []Rule
	Facts []Fact

	Sources  []string
	LoadedAt time.Time
}

// FunctionSet reports which dynamic value functions can be referenced by facts.
type FunctionSet interface {
	Has(name string) bool
}

// NewFact builds a fact with its match key precomputed.
func NewFact(key, response, function string) Fact {
	return Fact{Key: key, Response: response, Function: function, keyLower: normalize(key)}
}

// NewRule builds a rule, normalizing keywords and dropping blank ones.
func NewRule(id string, keywords, templates []string) Rule {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = normalize(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	return Rule{ID: id, Keywords: kws, Templates: templates}
}

// Empty returns a base without rules or facts.
func Empty() *Base {
	return &Base{LoadedAt: time.Now()}
}
