package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies one streaming event kind.
type EventType string

const (
	EventStart    EventType = "start"
	EventStep     EventType = "step"
	EventToken    EventType = "token"
	EventArtifact EventType = "artifact"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one incremental update of a streamed turn.
type Event struct {
	Type            EventType      `json:"type"`
	SessionID       string         `json:"session_id,omitempty"`
	Timestamp       string         `json:"timestamp,omitempty"`
	Step            *ExecutionStep `json:"step,omitempty"`
	Content         string         `json:"content,omitempty"`
	Artifact        *Artifact      `json:"artifact,omitempty"`
	Success         bool           `json:"success,omitempty"`
	TotalDurationMS int64          `json:"total_duration_ms,omitempty"`
	Message         string         `json:"message,omitempty"`
}

// ExecuteStream runs one turn and emits incremental events on the returned
// channel: start, the thought step, tokens as the model produces them,
// action/observation steps for tool rounds, one artifact event per extracted
// artifact, the final answer step, and a terminal complete event. Any failure
// replaces the remaining events with a single error event. The channel is
// closed when the turn ends; cancelling ctx abandons the turn without
// leaking the goroutine.
func (a *Agent) ExecuteStream(ctx context.Context, userMessage, sessionID string) <-chan Event {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ch := make(chan Event)
	go func() {
		defer close(ch)
		emit := func(ev Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !emit(Event{Type: EventStart, SessionID: sessionID, Timestamp: time.Now().Format(time.RFC3339Nano)}) {
			return
		}
		ts := &turnState{emit: emit}
		resp := a.runTurn(ctx, userMessage, sessionID, ts)
		if resp.Success {
			emit(Event{
				Type:            EventComplete,
				SessionID:       sessionID,
				Success:         true,
				TotalDurationMS: resp.TotalDurationMS,
			})
			return
		}
		emit(Event{Type: EventError, Message: resp.Message})
	}()
	return ch
}
