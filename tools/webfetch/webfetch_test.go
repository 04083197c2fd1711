package webfetch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/atlasagent/atlas/tools/webfetch/models"
)

type stubFetcher struct {
	page  models.Page
	links []models.Link
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (models.Page, error) {
	if s.err != nil {
		return models.Page{}, s.err
	}
	p := s.page
	p.URL = url
	return p, nil
}

func (s *stubFetcher) Links(_ context.Context, _ string) ([]models.Link, error) {
	return s.links, s.err
}

func TestVisitPage(t *testing.T) {
	t.Parallel()
	tk := NewToolkit(&stubFetcher{page: models.Page{Title: "Go Blog", Text: "article body"}})
	out, err := tk.Invoke(context.Background(), "visit_page", map[string]any{"url": "https://go.dev/blog"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var page models.Page
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if page.URL != "https://go.dev/blog" || page.Title != "Go Blog" {
		t.Fatalf("page = %+v", page)
	}
}

func TestGetPageLinks(t *testing.T) {
	t.Parallel()
	tk := NewToolkit(&stubFetcher{links: []models.Link{{Text: "Docs", Href: "/doc"}}})
	out, err := tk.Invoke(context.Background(), "get_page_links", map[string]any{"url": "https://go.dev"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var payload struct {
		Links []models.Link `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Links) != 1 || payload.Links[0].Href != "/doc" {
		t.Fatalf("links = %+v", payload.Links)
	}
}

func TestInvokeErrors(t *testing.T) {
	t.Parallel()
	tk := NewToolkit(&stubFetcher{err: errors.New("timeout")})
	if _, err := tk.Invoke(context.Background(), "visit_page", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := tk.Invoke(context.Background(), "visit_page", map[string]any{"url": "x"}); err == nil {
		t.Fatalf("expected fetch error to surface")
	}
	if _, err := tk.Invoke(context.Background(), "other", map[string]any{"url": "x"}); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestNewFetcherDefaults(t *testing.T) {
	t.Parallel()
	if NewFetcher(0, 0) == nil {
		t.Fatalf("NewFetcher returned nil")
	}
}
