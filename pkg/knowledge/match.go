package knowledge

import "strings"

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchRule returns the first rule, in load order, having a keyword contained
// in message. message is expected lower-cased and trimmed.
func (b *Base) MatchRule(message string) (*Rule, bool) {
	if b == nil {
		return nil, false
	}
	for i := range b.Rules {
		for _, kw := range b.Rules[i].Keywords {
			if strings.Contains(message, kw) {
				return &b.Rules[i], true
			}
		}
	}
	return nil, false
}

// MatchFact returns the first fact, in load order, whose key is contained in
// message. message is expected lower-cased and trimmed.
func (b *Base) MatchFact(message string) (*Fact, bool) {
	if b == nil {
		return nil, false
	}
	for i := range b.Facts {
		key := b.Facts[i].keyLower
		if key == "" {
			continue
		}
		if strings.Contains(message, key) {
			return &b.Facts[i], true
		}
	}
	return nil, false
}

// Stats returns the number of rules and facts.
func (b *Base) Stats() (rules, facts int) {
	if b == nil {
		return 0, 0
	}
	return len(b.Rules), len(b.Facts)
}
