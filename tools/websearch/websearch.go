// Package websearch provides the web search capability backed by a hosted
// search API (serper.dev or Brave).
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/atlasagent/atlas/tools"
	"github.com/atlasagent/atlas/tools/websearch/brave"
	"github.com/atlasagent/atlas/tools/websearch/models"
	"github.com/atlasagent/atlas/tools/websearch/serper"
)

// Searcher queries a search provider for the top k results.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// NewSearcher builds the configured search client.
func NewSearcher(p Provider, apiKey string, timeout time.Duration) (Searcher, error) {
	switch p {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Timeout: timeout}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Timeout: timeout}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Toolkit exposes web search as an agent capability.
type Toolkit struct {
	searcher Searcher
}

func NewToolkit(s Searcher) *Toolkit { return &Toolkit{searcher: s} }

func (t *Toolkit) Name() string { return "web_search" }

func (t *Toolkit) Description() string {
	return "Search the web for information"
}

func (t *Toolkit) Operations() []tools.Operation {
	return []tools.Operation{
		{
			Name:        "web_search",
			Description: "Search the web for information. Returns a list of search results with titles, URLs, and snippets.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query":       {Type: jsonschema.String, Description: "The search query"},
					"num_results": {Type: jsonschema.Integer, Description: "Number of results to return (default 5)"},
				},
				Required: []string{"query"},
			},
		},
	}
}

func (t *Toolkit) Invoke(ctx context.Context, op string, input map[string]any) (string, error) {
	if op != "web_search" {
		return "", fmt.Errorf("unknown operation: %s", op)
	}
	query := tools.StrParam(input, "query")
	if query == "" {
		return "", errors.New("query is required")
	}
	k := tools.IntParam(input, "num_results", 5)
	results, err := t.searcher.Search(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	out, err := json.Marshal(map[string]any{"query": query, "results": results})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
