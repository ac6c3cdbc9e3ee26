package agent

import (
	"errors"
	"testing"

	"velo/model"
)

func TestStreamMergerTextAccumulation(t *testing.T) {
	msg := model.NewMessage(model.RoleAssistant, "")
	m := newStreamMerger(msg)

	for _, delta := range []string{"Hel", "lo ", "world"} {
		m.Apply(model.StreamChunk{Type: model.ChunkTextDelta, Text: delta})
	}
	m.Apply(model.StreamChunk{Type: model.ChunkDone})

	if !m.done {
		t.Error("expected merger to be done")
	}

	textParts := 0
	for _, p := range msg.Parts {
		if p.Kind == model.PartText {
			textParts++
		}
	}
	if textParts != 1 {
		t.Fatalf("expected exactly 1 text part, got %d", textParts)
	}
	if got := msg.TextPart().Text; got != "Hello world" {
		t.Errorf("expected accumulated text 'Hello world', got %q", got)
	}
	if msg.Content != "Hello world" {
		t.Errorf("expected Content mirror 'Hello world', got %q", msg.Content)
	}
}

func TestStreamMergerReasoningRendersFirst(t *testing.T) {
	msg := model.NewMessage(model.RoleAssistant, "")
	m := newStreamMerger(msg)

	// Text arrives before reasoning; the reasoning part must still end
	// up ahead of it.
	m.Apply(model.StreamChunk{Type: model.ChunkTextDelta, Text: "The answer is 42."})
	m.Apply(model.StreamChunk{Type: model.ChunkReasoning, Text: "Let me think. "})
	m.Apply(model.StreamChunk{Type: model.ChunkReasoning, Text: "Done thinking."})

	if len(msg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(msg.Parts))
	}
	if msg.Parts[0].Kind != model.PartReasoning {
		t.Errorf("expected reasoning part first, got %s", msg.Parts[0].Kind)
	}
	if got := msg.ReasoningPart().Text; got != "Let me think. Done thinking." {
		t.Errorf("unexpected reasoning text %q", got)
	}
	if got := msg.TextPart().Text; got != "The answer is 42." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestStreamMergerToolCalls(t *testing.T) {
	tests := []struct {
		name        string
		call        model.ToolCall
		wantQueued  bool
		wantStatus  model.ToolStatus
		checkedArgs func(t *testing.T, args map[string]any)
	}{
		{
			name:       "valid arguments are queued pending",
			call:       model.ToolCall{ID: "call-1", Name: "run_sql_query", Arguments: `{"sql":"SELECT 1"}`},
			wantQueued: true,
			wantStatus: model.ToolPending,
			checkedArgs: func(t *testing.T, args map[string]any) {
				if args["sql"] != "SELECT 1" {
					t.Errorf("expected sql arg, got %v", args)
				}
			},
		},
		{
			name:       "empty arguments become an empty map",
			call:       model.ToolCall{ID: "call-2", Name: "list_tables", Arguments: ""},
			wantQueued: true,
			wantStatus: model.ToolPending,
			checkedArgs: func(t *testing.T, args map[string]any) {
				if len(args) != 0 {
					t.Errorf("expected empty args, got %v", args)
				}
			},
		},
		{
			name:       "malformed arguments fail the part and skip the queue",
			call:       model.ToolCall{ID: "call-3", Name: "run_sql_query", Arguments: `{"sql":`},
			wantQueued: false,
			wantStatus: model.ToolError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := model.NewMessage(model.RoleAssistant, "")
			m := newStreamMerger(msg)

			call := tt.call
			m.Apply(model.StreamChunk{Type: model.ChunkToolCall, ToolCall: &call})

			part := msg.ToolInvocation(tt.call.ID)
			if part == nil {
				t.Fatal("expected a tool-invocation part")
			}
			if part.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, part.Status)
			}

			queued := len(m.queued) == 1
			if queued != tt.wantQueued {
				t.Errorf("queued=%v, want %v", queued, tt.wantQueued)
			}
			if tt.wantQueued && tt.checkedArgs != nil {
				tt.checkedArgs(t, m.queued[0].Args)
			}
		})
	}
}

func TestStreamMergerAssignsMissingCallID(t *testing.T) {
	msg := model.NewMessage(model.RoleAssistant, "")
	m := newStreamMerger(msg)

	m.Apply(model.StreamChunk{Type: model.ChunkToolCall, ToolCall: &model.ToolCall{
		Name: "list_tables", Arguments: "{}",
	}})

	if len(m.queued) != 1 {
		t.Fatal("expected one queued call")
	}
	if m.queued[0].ID == "" {
		t.Error("expected a generated call ID")
	}
	if msg.ToolInvocation(m.queued[0].ID) == nil {
		t.Error("part and queue entry should share the generated ID")
	}
}

func TestStreamMergerStopsAfterError(t *testing.T) {
	msg := model.NewMessage(model.RoleAssistant, "")
	m := newStreamMerger(msg)

	wantErr := errors.New("connection reset")
	m.Apply(model.StreamChunk{Type: model.ChunkTextDelta, Text: "partial"})
	m.Apply(model.StreamChunk{Type: model.ChunkError, Err: wantErr})
	m.Apply(model.StreamChunk{Type: model.ChunkTextDelta, Text: " ignored"})

	if m.streamErr != wantErr {
		t.Errorf("expected stream error %v, got %v", wantErr, m.streamErr)
	}
	if got := msg.TextPart().Text; got != "partial" {
		t.Errorf("chunks after an error must not apply, got %q", got)
	}
}
