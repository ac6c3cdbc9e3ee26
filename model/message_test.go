package model

import "testing"

func TestNewMessage(t *testing.T) {
	m := NewMessage(RoleUser, "hello")

	if m.ID == "" {
		t.Error("expected generated ID")
	}
	if m.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if m.Content != "hello" {
		t.Errorf("Content = %q", m.Content)
	}
	if m.TextPart() == nil || m.TextPart().Text != "hello" {
		t.Error("initial content should live in the text part")
	}

	empty := NewMessage(RoleAssistant, "")
	if len(empty.Parts) != 0 {
		t.Errorf("empty message should have no parts, got %d", len(empty.Parts))
	}
}

func TestAppendTextKeepsSinglePart(t *testing.T) {
	m := NewMessage(RoleAssistant, "")
	m.AppendText("a")
	m.AppendText("b")
	m.AppendText("c")

	if len(m.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(m.Parts))
	}
	if m.Parts[0].Text != "abc" || m.Content != "abc" {
		t.Errorf("text %q content %q", m.Parts[0].Text, m.Content)
	}
}

func TestAppendReasoningInsertsFirst(t *testing.T) {
	m := NewMessage(RoleAssistant, "")
	m.AppendText("answer")
	m.AddToolInvocation("c1", "list_tables", map[string]any{})
	m.AppendReasoning("because")

	if m.Parts[0].Kind != PartReasoning {
		t.Errorf("reasoning should be first, got %s", m.Parts[0].Kind)
	}
	// Existing parts keep their relative order.
	if m.Parts[1].Kind != PartText || m.Parts[2].Kind != PartToolInvocation {
		t.Errorf("unexpected order %s, %s", m.Parts[1].Kind, m.Parts[2].Kind)
	}
	if m.ToolInvocation("c1") == nil {
		t.Error("tool invocation lookup broken after reasoning insert")
	}
}

func TestToolInvocationsArrivalOrder(t *testing.T) {
	m := NewMessage(RoleAssistant, "")
	m.AddToolInvocation("c1", "first", map[string]any{})
	m.AddToolInvocation("c2", "second", map[string]any{})

	var names []string
	for _, p := range m.Parts {
		if p.Kind == PartToolInvocation {
			names = append(names, p.ToolName)
		}
	}
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("unexpected order %v", names)
	}

	if m.ToolInvocation("c3") != nil {
		t.Error("unknown call ID should return nil")
	}
}
