// Package artifacts implements the canonical in-memory artifact store with
// optional export of individual artifacts to disk.
package artifacts

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is the canonical record of one deliverable.
type Artifact struct {
	ID        string         `json:"id"`
	Kind      string         `json:"type"` // text, code, html, chart, table, document
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Language  string         `json:"language,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Export bundles every artifact of a session.
type Export struct {
	SessionID     string     `json:"session_id"`
	ArtifactCount int        `json:"artifact_count"`
	Artifacts     []Artifact `json:"artifacts"`
	ExportedAt    time.Time  `json:"exported_at"`
}

// Store is the process-wide artifact registry.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
	dir       string
	logger    *log.Logger
}

// NewStore creates a store exporting files under dir.
func NewStore(dir string) *Store {
	logger := log.New(log.Writer(), "[ARTIFACTS] ", log.LstdFlags)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Printf("storage dir %s: %v", dir, err)
	}
	return &Store{
		artifacts: make(map[string]*Artifact),
		dir:       dir,
		logger:    logger,
	}
}

// Create allocates a fresh artifact. It always succeeds.
func (s *Store) Create(kind, title, content, language, sessionID string, metadata map[string]any) Artifact {
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := time.Now()
	a := &Artifact{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Content:   content,
		Language:  language,
		SessionID: sessionID,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.artifacts[a.ID] = a
	s.mu.Unlock()
	s.logger.Printf("created artifact: %s (%s)", a.Title, a.Kind)
	return *a
}

// Adopt inserts an artifact extracted by the execution loop, preserving its
// id so session snapshots and canonical records agree.
func (s *Store) Adopt(a Artifact) Artifact {
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	s.mu.Lock()
	stored := a
	s.artifacts[a.ID] = &stored
	s.mu.Unlock()
	return a
}

// Get returns a copy of the artifact.
func (s *Store) Get(id string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return Artifact{}, false
	}
	return *a, true
}

// Update replaces content and title when provided and merges metadata
// key-wise.
func (s *Store) Update(id string, content, title *string, metadata map[string]any) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return Artifact{}, false
	}
	if content != nil {
		a.Content = *content
	}
	if title != nil {
		a.Title = *title
	}
	for k, v := range metadata {
		a.Metadata[k] = v
	}
	a.UpdatedAt = time.Now()
	return *a, true
}

// Delete removes an artifact, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[id]; !ok {
		return false
	}
	delete(s.artifacts, id)
	return true
}

// ListAll returns artifacts sorted by creation time descending, optionally
// filtered by session.
func (s *Store) ListAll(sessionID string) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Artifact
	for _, a := range s.artifacts {
		if sessionID != "" && a.SessionID != sessionID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ListByKind returns artifacts of one kind.
func (s *Store) ListByKind(kind string) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Artifact
	for _, a := range s.artifacts {
		if a.Kind == kind {
			out = append(out, *a)
		}
	}
	return out
}

var codeExtensions = map[string]string{
	"python":     ".py",
	"javascript": ".js",
	"typescript": ".ts",
	"java":       ".java",
	"cpp":        ".cpp",
	"c":          ".c",
	"csharp":     ".cs",
	"go":         ".go",
	"rust":       ".rs",
	"ruby":       ".rb",
	"php":        ".php",
	"swift":      ".swift",
	"kotlin":     ".kt",
	"html":       ".html",
	"css":        ".css",
	"sql":        ".sql",
	"shell":      ".sh",
	"bash":       ".sh",
	"powershell": ".ps1",
	"yaml":       ".yaml",
	"json":       ".json",
	"xml":        ".xml",
}

var kindExtensions = map[string]string{
	"document": ".md",
	"html":     ".html",
	"chart":    ".json",
	"table":    ".csv",
	"text":     ".txt",
}

func extensionFor(a *Artifact) string {
	if a.Kind == "code" {
		if ext, ok := codeExtensions[strings.ToLower(a.Language)]; ok {
			return ext
		}
		return ".txt"
	}
	if ext, ok := kindExtensions[a.Kind]; ok {
		return ext
	}
	return ".txt"
}

// SaveToFile serializes the raw artifact content to disk and returns the
// path, or false when the artifact does not exist.
func (s *Store) SaveToFile(id string) (string, error) {
	s.mu.RLock()
	a, ok := s.artifacts[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("artifact %s: not found", id)
	}
	filename := fmt.Sprintf("%s_%s%s", a.ID, strings.ReplaceAll(a.Title, " ", "_"), extensionFor(a))
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	s.logger.Printf("saved artifact to %s", path)
	return path, nil
}

// ExportSession bundles all artifacts of a session.
func (s *Store) ExportSession(sessionID string) Export {
	artifacts := s.ListAll(sessionID)
	return Export{
		SessionID:     sessionID,
		ArtifactCount: len(artifacts),
		Artifacts:     artifacts,
		ExportedAt:    time.Now(),
	}
}

// ClearSession removes every artifact belonging to a session and returns the
// number removed.
func (s *Store) ClearSession(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.artifacts {
		if a.SessionID == sessionID {
			delete(s.artifacts, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Printf("cleared %d artifacts from session %s", n, sessionID)
	}
	return n
}
