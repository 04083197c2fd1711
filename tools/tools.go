// Package tools defines the toolkit contract the agent exposes to the model
// and the registry that routes model-requested invocations to toolkits.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/atlasagent/atlas/provider"
)

// Operation describes one callable operation of a toolkit.
type Operation struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// Toolkit is a named capability set offering a fixed menu of operations.
// Invoke returns a JSON payload for the model; implementation errors should
// be returned as errors and are converted to error payloads by the registry.
type Toolkit interface {
	Name() string
	Description() string
	Operations() []Operation
	Invoke(ctx context.Context, op string, input map[string]any) (string, error)
}

// Registry aggregates toolkits and resolves operations by name. Operation
// names are globally unique across toolkits.
type Registry struct {
	toolkits []Toolkit
	byOp     map[string]Toolkit
	logger   *log.Logger
}

func NewRegistry(toolkits ...Toolkit) *Registry {
	r := &Registry{
		byOp:   make(map[string]Toolkit),
		logger: log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}
	for _, tk := range toolkits {
		r.toolkits = append(r.toolkits, tk)
		for _, op := range tk.Operations() {
			r.byOp[op.Name] = tk
		}
	}
	return r
}

// Toolkits returns the registered toolkits in registration order.
func (r *Registry) Toolkits() []Toolkit { return r.toolkits }

// Definitions flattens every operation into a tool declaration for the model.
func (r *Registry) Definitions() []provider.ToolDef {
	var defs []provider.ToolDef
	for _, tk := range r.toolkits {
		for _, op := range tk.Operations() {
			defs = append(defs, provider.ToolDef{
				Name:        op.Name,
				Description: op.Description,
				Parameters:  op.Parameters,
			})
		}
	}
	return defs
}

type errorPayload struct {
	Error string `json:"error"`
}

// Invoke executes one model-requested tool call. Failures of any kind are
// folded into an {"error": ...} payload so the model can see them and adapt;
// they are never propagated to the loop.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) string {
	tk, ok := r.byOp[name]
	if !ok {
		return errJSON(fmt.Sprintf("unknown tool: %s", name))
	}
	input := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &input); err != nil {
			return errJSON(fmt.Sprintf("invalid tool arguments: %v", err))
		}
	}
	out, err := tk.Invoke(ctx, name, input)
	if err != nil {
		r.logger.Printf("tool %s failed: %v", name, err)
		return errJSON(err.Error())
	}
	return out
}

func errJSON(msg string) string {
	b, _ := json.Marshal(errorPayload{Error: msg})
	return string(b)
}

// StrParam reads a string parameter from a tool input map.
func StrParam(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// IntParam reads an integer parameter, tolerating JSON's float64 decoding.
func IntParam(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
