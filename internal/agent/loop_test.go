package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/atlasagent/atlas/provider"
	"github.com/atlasagent/atlas/tools"
)

// scriptedProvider replays a fixed sequence of rounds. Streamed rounds feed
// the content through onToken in two chunks so token relaying is exercised.
type scriptedProvider struct {
	rounds []provider.ChatResponse
	errs   []error
	calls  int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(_ context.Context, _ provider.ChatRequest) (provider.ChatResponse, error) {
	return p.next()
}

func (p *scriptedProvider) ChatStream(_ context.Context, _ provider.ChatRequest, onToken provider.StreamHandler) (provider.ChatResponse, error) {
	resp, err := p.next()
	if err != nil {
		return provider.ChatResponse{}, err
	}
	if resp.Content != "" {
		half := len(resp.Content) / 2
		onToken(resp.Content[:half])
		onToken(resp.Content[half:])
	}
	return resp, nil
}

func (p *scriptedProvider) next() (provider.ChatResponse, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return provider.ChatResponse{}, p.errs[i]
	}
	if i >= len(p.rounds) {
		return provider.ChatResponse{}, errors.New("no more scripted rounds")
	}
	return p.rounds[i], nil
}

// echoToolkit records invocations and returns a fixed payload.
type echoToolkit struct {
	invoked []string
}

func (e *echoToolkit) Name() string        { return "echo" }
func (e *echoToolkit) Description() string { return "echoes input" }
func (e *echoToolkit) Operations() []tools.Operation {
	return []tools.Operation{{
		Name:        "echo_text",
		Description: "Echo the given text back",
		Parameters:  jsonschema.Definition{Type: jsonschema.Object},
	}}
}
func (e *echoToolkit) Invoke(_ context.Context, op string, input map[string]any) (string, error) {
	e.invoked = append(e.invoked, op)
	b, _ := json.Marshal(map[string]any{"echoed": input["text"]})
	return string(b), nil
}

func newTestAgent(p provider.Provider, tks ...tools.Toolkit) *Agent {
	return New(Options{Name: "Atlas", Description: "test agent", MaxIterations: 3}, p, tools.NewRegistry(tks...), nil)
}

func TestExecuteDirectAnswer(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{rounds: []provider.ChatResponse{{Content: "The answer is 42."}}}
	resp := newTestAgent(p).Execute(context.Background(), "what is the answer?", "sess-1", nil)

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}
	if resp.Message != "The answer is 42." {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.IterationCount != 0 {
		t.Fatalf("iteration count = %d, want 0", resp.IterationCount)
	}
	if len(resp.Steps) != 2 || resp.Steps[0].Type != StepThought || resp.Steps[1].Type != StepFinalAnswer {
		t.Fatalf("unexpected step trail: %+v", resp.Steps)
	}
}

func TestExecuteGeneratesSessionID(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{rounds: []provider.ChatResponse{{Content: "ok"}}}
	resp := newTestAgent(p).Execute(context.Background(), "hi", "", nil)
	if resp.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
}

func TestExecuteToolRound(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{rounds: []provider.ChatResponse{
		{ToolCalls: []provider.ToolCall{{ID: "call_1", Name: "echo_text", Arguments: `{"text":"hi"}`}}},
		{Content: "Echoed hi."},
	}}
	tk := &echoToolkit{}
	resp := newTestAgent(p, tk).Execute(context.Background(), "echo hi", "sess-2", nil)

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(tk.invoked) != 1 || tk.invoked[0] != "echo_text" {
		t.Fatalf("tool invocations = %v", tk.invoked)
	}
	if resp.IterationCount != 1 {
		t.Fatalf("iteration count = %d, want 1", resp.IterationCount)
	}
	// THOUGHT, ACTION, OBSERVATION, FINAL_ANSWER in order.
	types := make([]StepType, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		types = append(types, s.Type)
	}
	want := []StepType{StepThought, StepAction, StepObservation, StepFinalAnswer}
	if len(types) != len(want) {
		t.Fatalf("step types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("step %d = %s, want %s", i, types[i], want[i])
		}
	}
	action := resp.Steps[1]
	if action.ToolName != "echo_text" || action.ToolInput["text"] != "hi" {
		t.Fatalf("action step = %+v", action)
	}
	obs := resp.Steps[2]
	if obs.ToolName != "echo_text" || !strings.Contains(obs.ToolOutput, "echoed") {
		t.Fatalf("observation step = %+v", obs)
	}
}

func TestExecuteProviderFailure(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: []error{errors.New("model unavailable")}}
	resp := newTestAgent(p).Execute(context.Background(), "hi", "sess-3", nil)

	if resp.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(resp.Message, "model unavailable") {
		t.Fatalf("message = %q", resp.Message)
	}
	last := resp.Steps[len(resp.Steps)-1]
	if last.Type != StepError {
		t.Fatalf("last step = %s, want %s", last.Type, StepError)
	}
}

func TestExecuteIterationLimit(t *testing.T) {
	t.Parallel()
	// Every round asks for another tool call; the loop must give up after
	// MaxIterations instead of spinning.
	round := provider.ChatResponse{ToolCalls: []provider.ToolCall{{ID: "c", Name: "echo_text", Arguments: `{}`}}}
	p := &scriptedProvider{rounds: []provider.ChatResponse{round, round, round, round}}
	resp := newTestAgent(p, &echoToolkit{}).Execute(context.Background(), "loop forever", "sess-4", nil)

	if resp.Success {
		t.Fatalf("expected failure after iteration limit")
	}
	if !strings.Contains(resp.Message, "no final answer") {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.IterationCount != 3 {
		t.Fatalf("iteration count = %d, want 3", resp.IterationCount)
	}
}

func TestExecuteToolErrorVisibleToModel(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{rounds: []provider.ChatResponse{
		{ToolCalls: []provider.ToolCall{{ID: "c", Name: "no_such_tool", Arguments: `{}`}}},
		{Content: "fell back gracefully"},
	}}
	resp := newTestAgent(p, &echoToolkit{}).Execute(context.Background(), "try it", "sess-5", nil)

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	obs := resp.Steps[2]
	if obs.Type != StepObservation {
		t.Fatalf("step 2 = %s", obs.Type)
	}
	if !strings.Contains(obs.ToolOutput, "unknown tool") {
		t.Fatalf("observation output = %q", obs.ToolOutput)
	}
}

func TestExecuteExtractsArtifacts(t *testing.T) {
	t.Parallel()
	raw := `Here you go. <artifact type="code" language="python" title="Hello">print("hi")</artifact>`
	p := &scriptedProvider{rounds: []provider.ChatResponse{{Content: raw}}}
	resp := newTestAgent(p).Execute(context.Background(), "write hello world", "sess-6", nil)

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(resp.Artifacts) != 1 {
		t.Fatalf("artifacts = %d", len(resp.Artifacts))
	}
	if resp.Message != "Here you go. "+artifactPlaceholder {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.Steps[len(resp.Steps)-1].Content != resp.Message {
		t.Fatalf("final answer step does not match message")
	}
}
