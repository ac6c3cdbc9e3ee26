package model

// ChunkType identifies one discrete event in the streaming protocol.
type ChunkType string

const (
	ChunkTextDelta ChunkType = "textDelta"
	ChunkReasoning ChunkType = "reasoning"
	ChunkToolCall  ChunkType = "toolCall"
	ChunkDone      ChunkType = "done"
	ChunkError     ChunkType = "error"
)

// StreamChunk is one event from a provider stream. Providers normalize
// their SDK-specific events into this shape; everything downstream is
// transport-agnostic.
type StreamChunk struct {
	Type ChunkType

	// Text carries the delta for ChunkTextDelta and ChunkReasoning.
	Text string

	// ToolCall carries the completed call for ChunkToolCall.
	ToolCall *ToolCall

	// Err carries the failure for ChunkError.
	Err error
}

// ChunkHandler receives stream chunks in arrival order. Returning an
// error stops the stream.
type ChunkHandler func(StreamChunk) error

// ToolCall is a model-requested invocation as it arrives off the wire.
// Arguments is the raw JSON string; the merger parses it and downgrades
// the call to an error if parsing fails.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// PendingToolCall is the transient record queued between "chunk observed"
// and "execution dispatched". It is never persisted.
type PendingToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// PendingConfirmation is the singleton human-approval request for a
// mutating tool call. While one is outstanding the orchestrator refuses
// new user input.
type PendingConfirmation struct {
	ToolCallID string
	ToolName   string
	SQL        string
	IsMutation bool
}
