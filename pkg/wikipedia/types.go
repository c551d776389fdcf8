package wikipedia

// queryPagesResponse covers action=query with prop=extracts|info|pageimages
// (formatversion=2).
type queryPagesResponse struct {
	Query struct {
		Pages []struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Extract   string `json:"extract"`
			FullURL   string `json:"fullurl"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// parseSectionsResponse covers action=parse&prop=sections.
type parseSectionsResponse struct {
	Parse struct {
		Sections []struct {
			TocLevel int    `json:"toclevel"`
			Line     string `json:"line"`
			Anchor   string `json:"anchor"`
		} `json:"sections"`
	} `json:"parse"`
}

// searchResponse covers action=query&list=search.
type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// restSummaryResponse covers /api/rest_v1/page/summary/{title}.
type restSummaryResponse struct {
	Description string `json:"description"`
	Thumbnail   *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// page is an existing article resolved by title.
type page struct {
	Title   string
	Summary string
	URL     string
}
