package inmemory

import (
	"errors"
	"testing"

	"github.com/atlasagent/atlas/internal/session"
)

func TestGetOrCreateStable(t *testing.T) {
	t.Parallel()
	r := New(0)
	first := r.GetOrCreate("alpha")
	second := r.GetOrCreate("alpha")
	if first.ID != "alpha" || second.ID != "alpha" {
		t.Fatalf("ids = %q, %q", first.ID, second.ID)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("created_at changed on second lookup")
	}
}

func TestGetOrCreateAllocatesID(t *testing.T) {
	t.Parallel()
	r := New(0)
	s := r.GetOrCreate("")
	if s.ID == "" {
		t.Fatalf("expected allocated session id")
	}
	if _, err := r.Get(s.ID); err != nil {
		t.Fatalf("allocated session not retrievable: %v", err)
	}
}

func TestAppendTurn(t *testing.T) {
	t.Parallel()
	r := New(0)
	s := r.GetOrCreate("conv")
	snap := map[string]any{"id": "a1", "type": "text"}
	if err := r.AppendTurn(s.ID, "question", "answer", []map[string]any{snap}); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[1].Role != "assistant" {
		t.Fatalf("roles = %q, %q", got.Messages[0].Role, got.Messages[1].Role)
	}
	if got.LastActivity.Before(got.CreatedAt) {
		t.Fatalf("last_activity not advanced")
	}

	arts, err := r.ListArtifacts(s.ID)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(arts) != 1 || arts[0]["id"] != "a1" {
		t.Fatalf("artifacts = %+v", arts)
	}
}

func TestUnknownSession(t *testing.T) {
	t.Parallel()
	r := New(0)
	if _, err := r.Get("nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() error = %v", err)
	}
	if err := r.Delete("nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.AppendTurn("nope", "a", "b", nil); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if _, err := r.ListArtifacts("nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	r := New(0)
	s := r.GetOrCreate("gone")
	if err := r.Delete(s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListSortedByCreation(t *testing.T) {
	t.Parallel()
	r := New(0)
	r.GetOrCreate("one")
	r.GetOrCreate("two")
	r.GetOrCreate("three")
	out := r.List()
	if len(out) != 3 {
		t.Fatalf("list = %d entries", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CreatedAt.Before(out[i-1].CreatedAt) {
			t.Fatalf("list not sorted by creation time")
		}
	}
}

func TestEviction(t *testing.T) {
	t.Parallel()
	r := New(2)
	r.GetOrCreate("old")
	r.GetOrCreate("mid")
	// Touch "old" so "mid" becomes the least recently active.
	if err := r.AppendTurn("old", "q", "a", nil); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	r.GetOrCreate("new")

	if _, err := r.Get("mid"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected mid evicted, got %v", err)
	}
	if _, err := r.Get("old"); err != nil {
		t.Fatalf("old should survive: %v", err)
	}
	if _, err := r.Get("new"); err != nil {
		t.Fatalf("new should exist: %v", err)
	}
}
