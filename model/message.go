// Package model defines Velo's provider-agnostic conversation types: the
// message transcript, the streaming chunk contract, and the Provider
// interface implemented by the provider package.
//
// The types here are deliberately free of SDK-specific structures. The
// provider layer converts to and from each vendor's wire format, and the
// agent layer mutates messages without knowing which provider produced
// the chunks.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one transcript entry. The assistant message for an in-flight
// round is mutated in place by the stream merger and tool pipeline; once
// the round settles it is not touched again.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// ToolCallID links a RoleTool message back to the invocation that
	// produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(role Role, content string) *Message {
	m := &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Timestamp: time.Now(),
	}
	if content != "" {
		m.AppendText(content)
	}
	return m
}

// TextPart returns the message's single text part, or nil.
func (m *Message) TextPart() *Part {
	for i := range m.Parts {
		if m.Parts[i].Kind == PartText {
			return &m.Parts[i]
		}
	}
	return nil
}

// ReasoningPart returns the message's single reasoning part, or nil.
func (m *Message) ReasoningPart() *Part {
	for i := range m.Parts {
		if m.Parts[i].Kind == PartReasoning {
			return &m.Parts[i]
		}
	}
	return nil
}

// AppendText appends a delta to the message's text part, creating it if
// needed, and mirrors the accumulated value into Content so consumers
// that only read Content stay in sync.
func (m *Message) AppendText(delta string) {
	p := m.TextPart()
	if p == nil {
		m.Parts = append(m.Parts, Part{Kind: PartText})
		p = &m.Parts[len(m.Parts)-1]
	}
	p.Text += delta
	m.Content = p.Text
}

// AppendReasoning appends a delta to the message's reasoning part. A
// reasoning part created after text already exists still renders ahead of
// the text, so it is inserted at position 0.
func (m *Message) AppendReasoning(delta string) {
	p := m.ReasoningPart()
	if p == nil {
		m.Parts = append([]Part{{Kind: PartReasoning}}, m.Parts...)
		p = &m.Parts[0]
	}
	p.Text += delta
}

// AddToolInvocation appends a tool-invocation part in arrival order and
// returns a pointer to it. The pointer stays valid until the next part is
// appended, so callers mutate it immediately or re-find it by ID.
func (m *Message) AddToolInvocation(callID, name string, args map[string]any) *Part {
	m.Parts = append(m.Parts, Part{
		Kind:       PartToolInvocation,
		ToolCallID: callID,
		ToolName:   name,
		Args:       args,
		Status:     ToolPending,
	})
	return &m.Parts[len(m.Parts)-1]
}

// ToolInvocation returns the tool-invocation part with the given call ID,
// or nil.
func (m *Message) ToolInvocation(callID string) *Part {
	for i := range m.Parts {
		if m.Parts[i].Kind == PartToolInvocation && m.Parts[i].ToolCallID == callID {
			return &m.Parts[i]
		}
	}
	return nil
}
