package provider

import (
	"testing"

	"velo/model"
)

func transcript() []model.Message {
	return []model.Message{
		{Role: model.RoleUser, Content: "how many users?"},
		{Role: model.RoleAssistant, Content: "Checking.\n[tool call] run_sql_query({\"sql\":\"SELECT COUNT(*) FROM users\"})"},
		{Role: model.RoleTool, Content: `{"rows":[{"count":3}]}`, ToolCallID: "call-1"},
	}
}

func TestConvertToOllamaMessages(t *testing.T) {
	result := convertToOllamaMessages(transcript(), "be helpful")

	if len(result) != 4 {
		t.Fatalf("expected system + 3 messages, got %d", len(result))
	}
	if result[0].Role != "system" || result[0].Content != "be helpful" {
		t.Errorf("unexpected system message %+v", result[0])
	}
	// Ollama accepts the tool role natively.
	if result[3].Role != "tool" {
		t.Errorf("expected native tool role, got %q", result[3].Role)
	}

	// Without a system prompt the list starts at the transcript.
	bare := convertToOllamaMessages(transcript(), "")
	if len(bare) != 3 || bare[0].Role != "user" {
		t.Errorf("unexpected bare conversion %+v", bare)
	}
}

func TestConvertToOpenAIMessagesToolResults(t *testing.T) {
	result := convertToOpenAIMessages(transcript(), "be helpful")

	if len(result) != 4 {
		t.Fatalf("expected system + 3 messages, got %d", len(result))
	}
	if result[0].OfSystem == nil {
		t.Error("expected leading system message")
	}
	if result[2].OfAssistant == nil {
		t.Error("expected assistant message")
	}

	// Tool results travel as user messages carrying the call ID.
	toolMsg := result[3]
	if toolMsg.OfUser == nil {
		t.Fatal("expected tool result as user message")
	}
}

func TestConvertToAnthropicMessages(t *testing.T) {
	msgs := append([]model.Message{
		{Role: model.RoleSystem, Content: "use SQL"},
	}, transcript()...)

	converted, systemBlocks := convertToAnthropicMessages(msgs)

	if len(systemBlocks) != 1 || systemBlocks[0].Text != "use SQL" {
		t.Errorf("expected system block, got %+v", systemBlocks)
	}
	// System entries never appear in the message list.
	if len(converted) != 3 {
		t.Fatalf("expected 3 converted messages, got %d", len(converted))
	}
	if converted[0].Role != "user" || converted[1].Role != "assistant" {
		t.Errorf("unexpected roles %v %v", converted[0].Role, converted[1].Role)
	}
	// Tool results become user turns.
	if converted[2].Role != "user" {
		t.Errorf("expected tool result as user turn, got %v", converted[2].Role)
	}
}

func TestStripVendorPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"meta-llama/llama-3.2-90b-instruct", "llama-3.2-90b-instruct"},
		{"anthropic/claude-sonnet-4-5", "claude-sonnet-4-5"},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := stripVendorPrefix(tt.in); got != tt.want {
			t.Errorf("stripVendorPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
