// Package agent implements the ReAct execution loop: it drives model rounds,
// executes requested tools, extracts artifacts from the final output, and
// records the full step trail.
package agent

import (
	"time"

	"github.com/google/uuid"
)

// StepType classifies one entry of the execution trace.
type StepType string

const (
	StepThought     StepType = "thought"
	StepAction      StepType = "action"
	StepObservation StepType = "observation"
	StepFinalAnswer StepType = "final_answer"
	StepError       StepType = "error"
)

// ExecutionStep is one recorded unit of the thought/action/observation trace.
// Steps are append-only and never mutated after creation.
type ExecutionStep struct {
	ID         string         `json:"id"`
	Type       StepType       `json:"type"`
	Content    string         `json:"content"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	ToolOutput string         `json:"tool_output,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

func newStep(t StepType, content string) ExecutionStep {
	return ExecutionStep{
		ID:        uuid.NewString(),
		Type:      t,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Artifact is a deliverable extracted from agent output.
type Artifact struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"` // text, code, html, chart, table, document
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Language  string         `json:"language,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Snapshot returns a detached map copy of the artifact, suitable for storing
// in session history without sharing state with the canonical record.
func (a Artifact) Snapshot() map[string]any {
	snap := map[string]any{
		"id":         a.ID,
		"type":       a.Type,
		"title":      a.Title,
		"content":    a.Content,
		"created_at": a.CreatedAt.Format(time.RFC3339Nano),
	}
	if a.Language != "" {
		snap["language"] = a.Language
	}
	if len(a.Metadata) > 0 {
		meta := make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
		snap["metadata"] = meta
	}
	return snap
}

// Response is the complete result of one turn. Immutable once returned.
type Response struct {
	SessionID       string          `json:"session_id"`
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	Steps           []ExecutionStep `json:"steps"`
	Artifacts       []Artifact      `json:"artifacts"`
	TotalDurationMS int64           `json:"total_duration_ms"`
	IterationCount  int             `json:"iteration_count"`
}
