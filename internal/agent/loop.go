package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/atlasagent/atlas/internal/telemetry"
	"github.com/atlasagent/atlas/provider"
	"github.com/atlasagent/atlas/tools"
)

// Options configures an Agent.
type Options struct {
	Name          string
	Description   string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// Agent drives the ReAct loop. It holds only immutable collaborators, so a
// single instance is safe for concurrent turns; all per-turn scratch state
// lives in a turnState owned by the call.
type Agent struct {
	name          string
	description   string
	maxIterations int
	temperature   float64
	maxTokens     int

	provider provider.Provider
	registry *tools.Registry
	metrics  *telemetry.Metrics
	logger   *log.Logger
}

func New(opts Options, p provider.Provider, reg *tools.Registry, m *telemetry.Metrics) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	return &Agent{
		name:          opts.Name,
		description:   opts.Description,
		maxIterations: opts.MaxIterations,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		provider:      p,
		registry:      reg,
		metrics:       m,
		logger:        log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Toolkits returns the registered tool capability sets.
func (a *Agent) Toolkits() []tools.Toolkit { return a.registry.Toolkits() }

// turnState accumulates the step and artifact trail for one turn. When emit
// is set, recorded steps are also forwarded as streaming events; emit
// returning false means the consumer is gone and the turn should stop.
type turnState struct {
	steps     []ExecutionStep
	artifacts []Artifact
	emit      func(Event) bool
}

// addStep records a step and forwards it to the stream when present.
func (ts *turnState) addStep(s ExecutionStep) bool {
	ts.steps = append(ts.steps, s)
	if ts.emit != nil {
		return ts.emit(Event{Type: EventStep, Step: &s})
	}
	return true
}

// fail records an error step without emitting it: on the streaming path a
// single error event replaces everything after the failure point.
func (ts *turnState) fail(err error) {
	ts.steps = append(ts.steps, newStep(StepError, err.Error()))
}

var errConsumerGone = errors.New("stream consumer gone")

// Execute runs one complete turn and returns the full result. Failures are
// folded into a success=false response; Execute never returns an error.
func (a *Agent) Execute(ctx context.Context, userMessage, sessionID string, turnCtx map[string]any) Response {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ts := &turnState{}
	return a.runTurn(ctx, userMessage, sessionID, ts)
}

func (a *Agent) runTurn(ctx context.Context, userMessage, sessionID string, ts *turnState) Response {
	start := time.Now()
	a.logger.Printf("starting turn session=%s message=%.80q", sessionID, userMessage)

	if !ts.addStep(newStep(StepThought, "Analyzing request: "+userMessage)) {
		return a.failResponse(sessionID, ts, start, errConsumerGone)
	}

	msgs := []provider.Message{
		{Role: provider.RoleSystem, Content: systemInstructions(a.name, a.description)},
		{Role: provider.RoleUser, Content: userMessage},
	}
	defs := a.registry.Definitions()

	var finalRaw string
	answered := false
	for round := 0; round < a.maxIterations; round++ {
		resp, err := a.modelRound(ctx, msgs, defs, ts)
		if err != nil {
			return a.failResponse(sessionID, ts, start, err)
		}
		a.metrics.ObserveTokens(resp.PromptTokens, resp.CompletionTokens)

		if len(resp.ToolCalls) == 0 {
			finalRaw = resp.Content
			answered = true
			break
		}

		msgs = append(msgs, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			if ok, err := a.invokeTool(ctx, tc, ts, &msgs); err != nil {
				return a.failResponse(sessionID, ts, start, err)
			} else if !ok {
				return a.failResponse(sessionID, ts, start, errConsumerGone)
			}
		}
	}
	if !answered {
		return a.failResponse(sessionID, ts, start, fmt.Errorf("no final answer after %d iterations", a.maxIterations))
	}

	clean, artifacts := ExtractArtifacts(finalRaw)
	ts.artifacts = artifacts
	for i := range artifacts {
		a.metrics.ObserveArtifact(artifacts[i].Type)
		a.logger.Printf("created artifact: %s (%s)", artifacts[i].Title, artifacts[i].Type)
		if ts.emit != nil && !ts.emit(Event{Type: EventArtifact, Artifact: &artifacts[i]}) {
			return a.failResponse(sessionID, ts, start, errConsumerGone)
		}
	}

	if !ts.addStep(newStep(StepFinalAnswer, clean)) {
		return a.failResponse(sessionID, ts, start, errConsumerGone)
	}

	duration := time.Since(start)
	a.metrics.ObserveTurn(true, duration)
	return Response{
		SessionID:       sessionID,
		Success:         true,
		Message:         clean,
		Steps:           ts.steps,
		Artifacts:       artifacts,
		TotalDurationMS: duration.Milliseconds(),
		IterationCount:  countActions(ts.steps),
	}
}

// invokeTool maps one model-requested call to an ACTION/OBSERVATION step pair
// and feeds the result back into the transcript. The bool result is false
// when the stream consumer went away.
func (a *Agent) invokeTool(ctx context.Context, tc provider.ToolCall, ts *turnState, msgs *[]provider.Message) (bool, error) {
	input := map[string]any{}
	if tc.Arguments != "" {
		// Invalid arguments still reach the registry, which reports them to
		// the model as an error payload.
		_ = json.Unmarshal([]byte(tc.Arguments), &input)
	}
	action := newStep(StepAction, fmt.Sprintf("Invoking tool %s", tc.Name))
	action.ToolName = tc.Name
	action.ToolInput = input
	if !ts.addStep(action) {
		return false, nil
	}

	t0 := time.Now()
	out := a.registry.Invoke(ctx, tc.Name, tc.Arguments)
	a.metrics.ObserveToolInvocation(tc.Name)

	obs := newStep(StepObservation, fmt.Sprintf("Tool %s returned %d bytes", tc.Name, len(out)))
	obs.ToolName = tc.Name
	obs.ToolOutput = out
	obs.DurationMS = time.Since(t0).Milliseconds()
	if !ts.addStep(obs) {
		return false, nil
	}

	*msgs = append(*msgs, provider.Message{
		Role:       provider.RoleTool,
		ToolCallID: tc.ID,
		Content:    out,
	})
	return true, nil
}

// modelRound performs one delegated model call, streamed when the turn has a
// live event consumer.
func (a *Agent) modelRound(ctx context.Context, msgs []provider.Message, defs []provider.ToolDef, ts *turnState) (provider.ChatResponse, error) {
	req := provider.ChatRequest{
		Messages:    msgs,
		Tools:       defs,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}
	if ts.emit == nil {
		return a.provider.Chat(ctx, req)
	}
	return a.provider.ChatStream(ctx, req, func(chunk string) {
		ts.emit(Event{Type: EventToken, Content: chunk})
	})
}

func (a *Agent) failResponse(sessionID string, ts *turnState, start time.Time, err error) Response {
	a.logger.Printf("turn failed session=%s: %v", sessionID, err)
	ts.fail(err)
	duration := time.Since(start)
	a.metrics.ObserveTurn(false, duration)
	return Response{
		SessionID:       sessionID,
		Success:         false,
		Message:         fmt.Sprintf("Error during execution: %v", err),
		Steps:           ts.steps,
		Artifacts:       ts.artifacts,
		TotalDurationMS: duration.Milliseconds(),
		IterationCount:  countActions(ts.steps),
	}
}

func countActions(steps []ExecutionStep) int {
	n := 0
	for _, s := range steps {
		if s.Type == StepAction {
			n++
		}
	}
	return n
}
