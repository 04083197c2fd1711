package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atlasagent/atlas/tools/websearch/models"
)

type stubSearcher struct {
	gotQuery string
	gotK     int
	results  []models.Result
	err      error
}

func (s *stubSearcher) Search(_ context.Context, query string, k int) ([]models.Result, error) {
	s.gotQuery = query
	s.gotK = k
	return s.results, s.err
}

func TestNewSearcher(t *testing.T) {
	t.Parallel()
	if _, err := NewSearcher(SerperProvider, "key", time.Second); err != nil {
		t.Fatalf("serper: %v", err)
	}
	if _, err := NewSearcher(BraveProvider, "key", time.Second); err != nil {
		t.Fatalf("brave: %v", err)
	}
	if _, err := NewSearcher(Provider("duckduckgo"), "key", time.Second); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestToolkitInvoke(t *testing.T) {
	t.Parallel()
	s := &stubSearcher{results: []models.Result{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language"},
	}}
	tk := NewToolkit(s)

	out, err := tk.Invoke(context.Background(), "web_search", map[string]any{"query": "golang", "num_results": float64(3)})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if s.gotQuery != "golang" || s.gotK != 3 {
		t.Fatalf("searcher called with %q, %d", s.gotQuery, s.gotK)
	}
	var payload struct {
		Query   string          `json:"query"`
		Results []models.Result `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].URL != "https://go.dev" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestToolkitInvokeDefaults(t *testing.T) {
	t.Parallel()
	s := &stubSearcher{}
	tk := NewToolkit(s)
	if _, err := tk.Invoke(context.Background(), "web_search", map[string]any{"query": "x"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if s.gotK != 5 {
		t.Fatalf("default num_results = %d, want 5", s.gotK)
	}
}

func TestToolkitInvokeErrors(t *testing.T) {
	t.Parallel()
	tk := NewToolkit(&stubSearcher{err: errors.New("quota exceeded")})
	if _, err := tk.Invoke(context.Background(), "web_search", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing query")
	}
	if _, err := tk.Invoke(context.Background(), "other_op", map[string]any{"query": "x"}); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
	_, err := tk.Invoke(context.Background(), "web_search", map[string]any{"query": "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("provider error not surfaced: %v", err)
	}
}
