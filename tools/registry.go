// Package tools maps tool names to executable operations with declared
// argument schemas. The registry is the single dispatch table the agent's
// pipeline drives; schemas use the MCP tool shape so they convert
// directly to every provider's wire format.
package tools

import (
	"context"
	"fmt"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ExecuteFunc runs a tool with validated arguments. The returned value is
// opaque JSON to the caller. Errors are reported, never thrown past the
// pipeline.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// MutatingFunc classifies one invocation as mutating based on its
// arguments. A nil MutatingFunc means the tool never mutates.
type MutatingFunc func(args map[string]any) bool

// Tool is one registry entry. Execute is dispatched at most once per
// invocation by the pipeline, but implementations are allowed to be
// non-idempotent (DDL is).
type Tool struct {
	Name        string
	Description string
	InputSchema mcptypes.ToolInputSchema
	Mutating    MutatingFunc
	Execute     ExecuteFunc
}

// MutationSQL extracts the SQL an invocation would run, for display in
// the confirmation prompt. Nil for tools without a SQL payload.
func (t *Tool) MutationSQL(args map[string]any) string {
	if s, ok := args["sql"].(string); ok {
		return s
	}
	return ""
}

// Registry holds the available tools, preserving registration order for
// stable provider tool lists.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous
// entry without changing its position.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %q must have an executor", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Lookup returns the tool for name, or nil if unknown.
func (r *Registry) Lookup(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions exports all tools in registration order, ready for
// conversion to a provider's tool format.
func (r *Registry) Definitions() []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, mcptypes.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return defs
}

// ValidateArgs checks args against the tool's declared schema: required
// properties must be present and typed values must match their declared
// JSON type. Failures are returned as errors for reporting as tool
// errors; nothing here panics.
func ValidateArgs(t *Tool, args map[string]any) error {
	for _, required := range t.InputSchema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("missing required argument %q", required)
		}
	}

	for name, value := range args {
		propRaw, ok := t.InputSchema.Properties[name]
		if !ok {
			// Unknown extra arguments are tolerated; models add them.
			continue
		}
		prop, ok := propRaw.(map[string]any)
		if !ok {
			continue
		}
		declared, ok := prop["type"].(string)
		if !ok {
			continue
		}
		if err := checkJSONType(name, declared, value); err != nil {
			return err
		}
	}
	return nil
}

func checkJSONType(name, declared string, value any) error {
	if value == nil {
		return nil
	}
	ok := true
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			ok = false
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			ok = v == float64(int64(v))
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	}
	if !ok {
		return fmt.Errorf("argument %q must be of type %s", name, declared)
	}
	return nil
}
