package tools

import (
	"context"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func noopExecute(ctx context.Context, args map[string]any) (any, error) {
	return nil, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Tool{Name: "", Execute: noopExecute}); err == nil {
		t.Error("expected error for unnamed tool")
	}
	if err := r.Register(&Tool{Name: "no_exec"}); err == nil {
		t.Error("expected error for tool without executor")
	}

	if err := r.Register(&Tool{Name: "a", Description: "first", Execute: noopExecute}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := r.Lookup("a"); got == nil || got.Description != "first" {
		t.Errorf("Lookup(a) = %+v", got)
	}
	if got := r.Lookup("missing"); got != nil {
		t.Errorf("Lookup(missing) = %+v, want nil", got)
	}
}

func TestRegistryDefinitionsPreserveOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(&Tool{Name: name, Execute: noopExecute})
	}

	// Re-registering keeps the original position.
	r.Register(&Tool{Name: "alpha", Description: "replaced", Execute: noopExecute})

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("definition %d = %s, want %s", i, def.Name, want[i])
		}
	}
	if defs[1].Description != "replaced" {
		t.Errorf("re-registration should replace the entry, got %q", defs[1].Description)
	}
}

func TestValidateArgs(t *testing.T) {
	tool := &Tool{
		Name: "run_sql_query",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"sql":   map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
				"dry":   map[string]any{"type": "boolean"},
			},
			Required: []string{"sql"},
		},
		Execute: noopExecute,
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"all valid", map[string]any{"sql": "SELECT 1", "limit": float64(10), "dry": true}, false},
		{"required only", map[string]any{"sql": "SELECT 1"}, false},
		{"missing required", map[string]any{"limit": float64(10)}, true},
		{"wrong string type", map[string]any{"sql": 42}, true},
		{"fractional integer", map[string]any{"sql": "SELECT 1", "limit": 1.5}, true},
		{"whole float as integer", map[string]any{"sql": "SELECT 1", "limit": float64(3)}, false},
		{"wrong boolean type", map[string]any{"sql": "SELECT 1", "dry": "yes"}, true},
		{"unknown extra argument tolerated", map[string]any{"sql": "SELECT 1", "verbose": true}, false},
		{"nil value tolerated", map[string]any{"sql": "SELECT 1", "limit": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(tool, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestMutationSQL(t *testing.T) {
	tool := &Tool{Name: "execute_ddl", Execute: noopExecute}

	if got := tool.MutationSQL(map[string]any{"sql": "DROP TABLE t"}); got != "DROP TABLE t" {
		t.Errorf("MutationSQL = %q", got)
	}
	if got := tool.MutationSQL(map[string]any{}); got != "" {
		t.Errorf("MutationSQL without sql arg = %q, want empty", got)
	}
}
