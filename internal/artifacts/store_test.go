package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := s.Create("code", "Fib", "def fib(n): ...", "python", "sess-1", nil)
	if a.ID == "" {
		t.Fatalf("id not assigned")
	}
	if a.Metadata == nil {
		t.Fatalf("metadata not initialised")
	}

	got, ok := s.Get(a.ID)
	if !ok {
		t.Fatalf("Get() missed fresh artifact")
	}
	if got.Kind != "code" || got.Language != "python" || got.SessionID != "sess-1" {
		t.Fatalf("unexpected artifact: %+v", got)
	}
}

func TestAdoptPreservesID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	in := Artifact{ID: "fixed-id", Kind: "text", Title: "Note", Content: "body", CreatedAt: time.Now()}
	out := s.Adopt(in)
	if out.ID != "fixed-id" {
		t.Fatalf("id = %q", out.ID)
	}
	if _, ok := s.Get("fixed-id"); !ok {
		t.Fatalf("adopted artifact not retrievable")
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := s.Create("text", "Draft", "v1", "", "", map[string]any{"rev": 1})

	content := "v2"
	got, ok := s.Update(a.ID, &content, nil, map[string]any{"reviewed": true})
	if !ok {
		t.Fatalf("Update() missed artifact")
	}
	if got.Content != "v2" || got.Title != "Draft" {
		t.Fatalf("updated artifact = %+v", got)
	}
	if got.Metadata["rev"] != 1 || got.Metadata["reviewed"] != true {
		t.Fatalf("metadata not merged: %+v", got.Metadata)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updated_at not advanced")
	}

	if _, ok := s.Update("missing", &content, nil, nil); ok {
		t.Fatalf("Update() on unknown id must report false")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := s.Create("text", "X", "y", "", "", nil)
	if !s.Delete(a.ID) {
		t.Fatalf("Delete() = false for existing artifact")
	}
	if s.Delete(a.ID) {
		t.Fatalf("Delete() = true for removed artifact")
	}
}

func TestListAllFiltersAndSorts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.Adopt(Artifact{ID: "a", Kind: "text", SessionID: "s1", CreatedAt: time.Now().Add(-2 * time.Hour)})
	s.Adopt(Artifact{ID: "b", Kind: "code", SessionID: "s1", CreatedAt: time.Now().Add(-1 * time.Hour)})
	s.Adopt(Artifact{ID: "c", Kind: "text", SessionID: "s2", CreatedAt: time.Now()})

	all := s.ListAll("")
	if len(all) != 3 {
		t.Fatalf("ListAll(\"\") = %d entries", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("not sorted newest first: %v, %v, %v", all[0].ID, all[1].ID, all[2].ID)
	}

	s1 := s.ListAll("s1")
	if len(s1) != 2 {
		t.Fatalf("ListAll(s1) = %d entries", len(s1))
	}

	code := s.ListByKind("code")
	if len(code) != 1 || code[0].ID != "b" {
		t.Fatalf("ListByKind(code) = %+v", code)
	}
}

func TestSaveToFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewStore(dir)

	tests := []struct {
		name     string
		kind     string
		language string
		wantExt  string
	}{
		{name: "rust code", kind: "code", language: "rust", wantExt: ".rs"},
		{name: "unknown language", kind: "code", language: "cobol", wantExt: ".txt"},
		{name: "document", kind: "document", wantExt: ".md"},
		{name: "chart", kind: "chart", wantExt: ".json"},
		{name: "unknown kind", kind: "mystery", wantExt: ".txt"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a := s.Create(tt.kind, "My Title", "content", tt.language, "", nil)
			path, err := s.SaveToFile(a.ID)
			if err != nil {
				t.Fatalf("SaveToFile() error = %v", err)
			}
			if !strings.HasSuffix(path, tt.wantExt) {
				t.Fatalf("path = %q, want suffix %q", path, tt.wantExt)
			}
			if filepath.Dir(path) != dir {
				t.Fatalf("path %q outside store dir", path)
			}
			if !strings.Contains(filepath.Base(path), "My_Title") {
				t.Fatalf("title not encoded in filename: %q", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading saved file: %v", err)
			}
			if string(data) != "content" {
				t.Fatalf("file content = %q", data)
			}
		})
	}

	if _, err := s.SaveToFile("missing"); err == nil {
		t.Fatalf("expected error for unknown artifact")
	}
}

func TestExportAndClearSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.Create("text", "A", "1", "", "sess-x", nil)
	s.Create("text", "B", "2", "", "sess-x", nil)
	s.Create("text", "C", "3", "", "sess-y", nil)

	exp := s.ExportSession("sess-x")
	if exp.ArtifactCount != 2 || len(exp.Artifacts) != 2 {
		t.Fatalf("export = %+v", exp)
	}

	if n := s.ClearSession("sess-x"); n != 2 {
		t.Fatalf("ClearSession() = %d, want 2", n)
	}
	if left := s.ListAll(""); len(left) != 1 {
		t.Fatalf("remaining artifacts = %d, want 1", len(left))
	}
}
