// Package provider abstracts the hosted language model behind a small chat
// interface so the execution loop never talks to a vendor SDK directly.
package provider

import "context"

// Message roles mirror the chat-completions wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a conversation transcript.
type Message struct {
	Role       string
	Content    string
	ToolCallID string     // set on tool-result messages
	ToolCalls  []ToolCall // set on assistant messages that request tools
}

// ToolCall is a model-requested tool invocation. Arguments is the raw JSON
// payload produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef declares one callable operation to the model. Parameters must be a
// JSON-schema object marshalable to JSON.
type ToolDef struct {
	Name        string
	Description string
	Parameters  any
}

// ChatRequest is one model round: the transcript so far plus the declared
// tool menu.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the model's answer for one round: either free text, or one
// or more tool calls to execute before the next round.
type ChatResponse struct {
	Content          string
	ToolCalls        []ToolCall
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// StreamHandler receives incremental text fragments during a streamed round.
type StreamHandler func(chunk string)

// Provider is the contract for a hosted chat model.
type Provider interface {
	// Name identifies the backing vendor.
	Name() string

	// Chat performs one blocking model round.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatStream performs one model round, invoking onToken for every text
	// fragment as it is produced. The returned response carries the full
	// assembled content and any tool calls.
	ChatStream(ctx context.Context, req ChatRequest, onToken StreamHandler) (ChatResponse, error)
}
