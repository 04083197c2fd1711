// Package document provides the document assembly capability: building
// sectioned documents and rendering them as markdown or HTML.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/yuin/goldmark"

	"github.com/atlasagent/atlas/tools"
)

type section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type doc struct {
	Title    string    `json:"title"`
	Format   string    `json:"format"` // markdown or html
	Sections []section `json:"sections"`
}

// Toolkit holds named in-progress documents for the lifetime of the process.
type Toolkit struct {
	mu   sync.Mutex
	docs map[string]*doc
	md   goldmark.Markdown
}

func NewToolkit() *Toolkit {
	return &Toolkit{
		docs: make(map[string]*doc),
		md:   goldmark.New(),
	}
}

func (t *Toolkit) Name() string { return "document" }

func (t *Toolkit) Description() string {
	return "Create and assemble documents section by section"
}

func (t *Toolkit) Operations() []tools.Operation {
	nameProp := jsonschema.Definition{Type: jsonschema.String, Description: "Document name"}
	return []tools.Operation{
		{
			Name:        "create_document",
			Description: "Start a new document with a title. Format is markdown (default) or html.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":   nameProp,
					"title":  {Type: jsonschema.String, Description: "Document title"},
					"format": {Type: jsonschema.String, Description: "Output format", Enum: []string{"markdown", "html"}},
				},
				Required: []string{"name", "title"},
			},
		},
		{
			Name:        "add_section",
			Description: "Append a section (heading plus markdown content) to a document.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":    nameProp,
					"heading": {Type: jsonschema.String, Description: "Section heading"},
					"content": {Type: jsonschema.String, Description: "Section body in markdown"},
				},
				Required: []string{"name", "content"},
			},
		},
		{
			Name:        "render_document",
			Description: "Render the assembled document. Wrap the result in a document artifact to deliver it.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name": nameProp,
				},
				Required: []string{"name"},
			},
		},
	}
}

func (t *Toolkit) Invoke(ctx context.Context, op string, input map[string]any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := tools.StrParam(input, "name")
	if name == "" {
		return "", errors.New("name is required")
	}
	switch op {
	case "create_document":
		title := tools.StrParam(input, "title")
		if title == "" {
			return "", errors.New("title is required")
		}
		format := tools.StrParam(input, "format")
		if format == "" {
			format = "markdown"
		}
		if format != "markdown" && format != "html" {
			return "", fmt.Errorf("unsupported format %q", format)
		}
		t.docs[name] = &doc{Title: title, Format: format}
		return t.status(name)
	case "add_section":
		d, ok := t.docs[name]
		if !ok {
			return "", fmt.Errorf("document %q not found", name)
		}
		content := tools.StrParam(input, "content")
		if content == "" {
			return "", errors.New("content is required")
		}
		d.Sections = append(d.Sections, section{
			Heading: tools.StrParam(input, "heading"),
			Content: content,
		})
		return t.status(name)
	case "render_document":
		d, ok := t.docs[name]
		if !ok {
			return "", fmt.Errorf("document %q not found", name)
		}
		rendered, err := t.render(d)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(map[string]any{
			"name":    name,
			"format":  d.Format,
			"content": rendered,
		})
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown operation: %s", op)
	}
}

func (t *Toolkit) status(name string) (string, error) {
	d := t.docs[name]
	out, err := json.Marshal(map[string]any{
		"name":     name,
		"title":    d.Title,
		"format":   d.Format,
		"sections": len(d.Sections),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Toolkit) render(d *doc) (string, error) {
	var md strings.Builder
	md.WriteString("# " + d.Title + "\n")
	for _, s := range d.Sections {
		md.WriteString("\n")
		if s.Heading != "" {
			md.WriteString("## " + s.Heading + "\n\n")
		}
		md.WriteString(strings.TrimRight(s.Content, "\n") + "\n")
	}
	if d.Format == "markdown" {
		return md.String(), nil
	}
	var buf bytes.Buffer
	if err := t.md.Convert([]byte(md.String()), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
