package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/pkg/search"
)

const (
	DefaultBaseURL   = "https://fr.wikipedia.org"
	DefaultUserAgent = "rule-chatbot-be/1.0"

	thumbnailSize = 500

	msgNotFound = "Aucun article trouvé pour '%s'"
	msgTimeout  = "⏳ La connexion à Wikipédia a expiré. Réessayez plus tard."
	msgNetwork  = "Une erreur réseau est survenue. Vérifiez votre connexion."
	msgUnknown  = "Erreur lors de la recherche. Veuillez reformuler."
)

var errUpstreamStatus = errors.New("wikipedia: unexpected status")

// transportError marks failures that happened before a response was read.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Client looks articles up on a MediaWiki site. It implements search.Searcher.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     logger.ILogger
}

// NewClient creates a client for baseURL (e.g. https://fr.wikipedia.org).
func NewClient(baseURL, userAgent string, timeout time.Duration, log logger.ILogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Search tries an exact title lookup first, then one full-text search whose
// top hit is returned as a suggestion.
func (c *Client) Search(ctx context.Context, query string) *search.Result {
	query = strings.TrimSpace(query)
	c.logger.Debug("Wikipedia", "Search requested", map[string]interface{}{"query": query})

	res, err := c.search(ctx, query)
	if err != nil {
		c.logger.Warn("Wikipedia", "Search failed", map[string]interface{}{"query": query, "error": err.Error()})
		return classify(err)
	}
	return res
}

func (c *Client) search(ctx context.Context, query string) (*search.Result, error) {
	if query == "" {
		return c.notFound(query), nil
	}

	// "|" separates titles in the MediaWiki API, so such a query cannot be
	// an exact title
	var p *page
	if !strings.Contains(query, "|") {
		var err error
		if p, err = c.lookupPage(ctx, query); err != nil {
			return nil, err
		}
	}
	if p != nil {
		image, description := c.summaryExtras(ctx, p.Title)
		if image == "" {
			image = c.pageImage(ctx, p.Title)
		}
		return &search.Result{
			Type:        search.KindArticle,
			Title:       p.Title,
			Requested:   query,
			Summary:     p.Summary,
			URL:         p.URL,
			Image:       image,
			Description: description,
			Sections:    c.sections(ctx, p),
		}, nil
	}

	c.logger.Debug("Wikipedia", "No exact match, trying full-text search", map[string]interface{}{"query": query})

	best, err := c.bestMatch(ctx, query)
	if err != nil {
		return nil, err
	}
	if best != "" {
		suggested, err := c.lookupPage(ctx, best)
		if err != nil {
			return nil, err
		}
		if suggested != nil {
			image, _ := c.summaryExtras(ctx, suggested.Title)
			return &search.Result{
				Type:      search.KindArticle,
				Title:     suggested.Title,
				Requested: query,
				Summary:   suggested.Summary,
				URL:       suggested.URL,
				Image:     image,
				Suggested: true,
			}, nil
		}
	}

	return c.notFound(query), nil
}

func (c *Client) notFound(query string) *search.Result {
	return search.NewError(
		fmt.Sprintf(msgNotFound, query),
		c.baseURL+"/wiki/Special:Search?search="+url.QueryEscape(query),
	)
}

// lookupPage returns nil when no article has exactly this title.
func (c *Client) lookupPage(ctx context.Context, title string) (*page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp queryPagesResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Query.Pages {
		if p.Missing || p.Invalid || p.PageID == 0 {
			continue
		}
		return &page{Title: p.Title, Summary: p.Extract, URL: p.FullURL}, nil
	}
	return nil, nil
}

func (c *Client) bestMatch(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)

	var resp searchResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Search) == 0 {
		return "", nil
	}
	return resp.Query.Search[0].Title, nil
}

// sections lists top-level section anchors. Failures only cost the anchors.
func (c *Client) sections(ctx context.Context, p *page) []search.Section {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("prop", "sections")
	params.Set("page", p.Title)

	var resp parseSectionsResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		c.logger.Debug("Wikipedia", "Sections unavailable", map[string]interface{}{"title": p.Title, "error": err.Error()})
		return nil
	}

	out := make([]search.Section, 0, len(resp.Parse.Sections))
	for _, s := range resp.Parse.Sections {
		if s.TocLevel != 1 {
			continue
		}
		out = append(out, search.Section{
			Title: s.Line,
			URL:   p.URL + "#" + strings.ReplaceAll(s.Line, " ", "_"),
		})
	}
	return out
}

// summaryExtras reads thumbnail and short description from the REST API.
func (c *Client) summaryExtras(ctx context.Context, title string) (image, description string) {
	endpoint := c.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var resp restSummaryResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		c.logger.Debug("Wikipedia", "REST summary failed", map[string]interface{}{"title": title, "error": err.Error()})
		return "", ""
	}
	if resp.Thumbnail != nil {
		image = resp.Thumbnail.Source
	}
	return image, resp.Description
}

// pageImage is the pageimages fallback when REST gave no thumbnail.
func (c *Client) pageImage(ctx context.Context, title string) string {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "pageimages")
	params.Set("titles", title)
	params.Set("pithumbsize", fmt.Sprint(thumbnailSize))

	var resp queryPagesResponse
	if err := c.getAPI(ctx, params, &resp); err != nil {
		c.logger.Debug("Wikipedia", "pageimages fallback failed", map[string]interface{}{"title": title, "error": err.Error()})
		return ""
	}
	if pages := resp.Query.Pages; len(pages) > 0 && pages[0].Thumbnail != nil {
		return pages[0].Thumbnail.Source
	}
	return ""
}

func (c *Client) getAPI(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	return c.getJSON(ctx, c.baseURL+"/w/api.php?"+params.Encode(), out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", errUpstreamStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// classify turns a failure into the user-facing error result.
func classify(err error) *search.Result {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return search.NewError(msgTimeout, "")
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		return search.NewError(msgNetwork, "")
	}
	return search.NewError(msgUnknown, "")
}
