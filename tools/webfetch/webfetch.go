// Package webfetch provides the page fetch capability: headless rendering
// plus readability extraction.
package webfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/atlasagent/atlas/tools"
	chromedpfetch "github.com/atlasagent/atlas/tools/webfetch/chromedp"
	"github.com/atlasagent/atlas/tools/webfetch/models"
)

const (
	DefaultTimeoutMS = 15000
	MaxCharsDefault  = 20000
)

// Fetcher renders a page and extracts readable content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.Page, error)
	Links(ctx context.Context, url string) ([]models.Link, error)
}

// NewFetcher builds the chromedp-backed fetcher.
func NewFetcher(timeoutMS, maxChars int) Fetcher {
	if timeoutMS <= 0 {
		timeoutMS = DefaultTimeoutMS
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &chromedpfetch.Fetch{
		Timeout:  time.Duration(timeoutMS) * time.Millisecond,
		MaxChars: maxChars,
	}
}

// Toolkit exposes page fetching as an agent capability.
type Toolkit struct {
	fetcher Fetcher
}

func NewToolkit(f Fetcher) *Toolkit { return &Toolkit{fetcher: f} }

func (t *Toolkit) Name() string { return "web_fetch" }

func (t *Toolkit) Description() string {
	return "Visit web pages and extract their content"
}

func (t *Toolkit) Operations() []tools.Operation {
	urlParam := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"url": {Type: jsonschema.String, Description: "The URL to visit"},
		},
		Required: []string{"url"},
	}
	return []tools.Operation{
		{
			Name:        "visit_page",
			Description: "Visit a web page and return its readable content. Use this to read articles, documentation, or any web content.",
			Parameters:  urlParam,
		},
		{
			Name:        "get_page_links",
			Description: "Visit a web page and return the links it contains.",
			Parameters:  urlParam,
		},
	}
}

func (t *Toolkit) Invoke(ctx context.Context, op string, input map[string]any) (string, error) {
	url := tools.StrParam(input, "url")
	if url == "" {
		return "", errors.New("url is required")
	}
	switch op {
	case "visit_page":
		page, err := t.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		out, err := json.Marshal(page)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "get_page_links":
		links, err := t.fetcher.Links(ctx, url)
		if err != nil {
			return "", fmt.Errorf("links %s: %w", url, err)
		}
		out, err := json.Marshal(map[string]any{"url": url, "links": links})
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown operation: %s", op)
	}
}
