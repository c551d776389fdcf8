package search

import "context"

// Kind discriminates the Result union on the wire.
type Kind string

const (
	KindArticle Kind = "wikipedia"
	KindError   Kind = "error"
)

// Section is an anchor inside a found article.
type Section struct {
	Title string `json:"section_title"`
	URL   string `json:"section_url"`
}

// Result is either a found article (KindArticle) or an error (KindError).
// Message is set on errors, and on articles when the caller appends a notice.
type Result struct {
	Type Kind `json:"type"`

	Title       string    `json:"title,omitempty"`
	Requested   string    `json:"requested,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url,omitempty"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
	Suggested   bool      `json:"suggested,omitempty"` // came from the full-text fallback

	Message   string `json:"message,omitempty"`
	SearchURL string `json:"search_url,omitempty"`
}

// Searcher resolves a free-text query against an encyclopedia. It never
// fails: every failure is reported as a KindError result.
type Searcher interface {
	Search(ctx context.Context, query string) *Result
}

// Found reports whether r is an article.
func (r *Result) Found() bool {
	return r != nil && r.Type == KindArticle
}

// Clone returns a shallow copy safe to annotate.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.Sections != nil {
		c.Sections = append([]Section(nil), r.Sections...)
	}
	return &c
}

// AppendMessage adds text to Message, setting it when empty.
func (r *Result) AppendMessage(text string) {
	r.Message += text
}

// NewError builds a KindError result.
func NewError(message, searchURL string) *Result {
	return &Result{Type: KindError, Message: message, SearchURL: searchURL}
}
