package models

// Page is the readable content extracted from a rendered page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Text     string `json:"text"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}

// Link is one anchor found on a page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}
