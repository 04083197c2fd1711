package document

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func build(t *testing.T, format string) (*Toolkit, string) {
	t.Helper()
	tk := NewToolkit()
	ctx := context.Background()
	if _, err := tk.Invoke(ctx, "create_document", map[string]any{"name": "r", "title": "Quarterly Report", "format": format}); err != nil {
		t.Fatalf("create_document error = %v", err)
	}
	if _, err := tk.Invoke(ctx, "add_section", map[string]any{"name": "r", "heading": "Summary", "content": "Revenue grew **12%**."}); err != nil {
		t.Fatalf("add_section error = %v", err)
	}
	out, err := tk.Invoke(ctx, "render_document", map[string]any{"name": "r"})
	if err != nil {
		t.Fatalf("render_document error = %v", err)
	}
	var payload struct {
		Content string `json:"content"`
		Format  string `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload.Format != format {
		t.Fatalf("format = %q, want %q", payload.Format, format)
	}
	return tk, payload.Content
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	_, content := build(t, "markdown")
	if !strings.HasPrefix(content, "# Quarterly Report\n") {
		t.Fatalf("content = %q", content)
	}
	if !strings.Contains(content, "## Summary") || !strings.Contains(content, "**12%**") {
		t.Fatalf("content = %q", content)
	}
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()
	_, content := build(t, "html")
	if !strings.Contains(content, "<h1") || !strings.Contains(content, "<h2") {
		t.Fatalf("headings not rendered: %q", content)
	}
	if !strings.Contains(content, "<strong>12%</strong>") {
		t.Fatalf("bold not rendered: %q", content)
	}
}

func TestInvokeErrors(t *testing.T) {
	t.Parallel()
	tk := NewToolkit()
	ctx := context.Background()
	if _, err := tk.Invoke(ctx, "create_document", map[string]any{"name": "x"}); err == nil {
		t.Fatalf("expected error for missing title")
	}
	if _, err := tk.Invoke(ctx, "create_document", map[string]any{"name": "x", "title": "T", "format": "pdf"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := tk.Invoke(ctx, "add_section", map[string]any{"name": "missing", "content": "c"}); err == nil {
		t.Fatalf("expected error for unknown document")
	}
	if _, err := tk.Invoke(ctx, "render_document", map[string]any{"name": "missing"}); err == nil {
		t.Fatalf("expected error for unknown document")
	}
}
