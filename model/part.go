package model

// PartKind tags the variants of a message part.
type PartKind string

const (
	PartText           PartKind = "text"
	PartReasoning      PartKind = "reasoning"
	PartToolInvocation PartKind = "tool-invocation"
)

// ToolStatus is the lifecycle of a tool-invocation part. A call is
// pending the instant its chunk is observed, executing only once it
// reaches the front of the pipeline's queue, and success/error are
// terminal. There are no automatic retries.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolExecuting ToolStatus = "executing"
	ToolSuccess   ToolStatus = "success"
	ToolError     ToolStatus = "error"
)

// Part is one element of a message's part list. Exactly one variant's
// fields are meaningful, selected by Kind:
//
//   - PartText: Text accumulates concatenated deltas.
//   - PartReasoning: Text accumulates the model's deliberation; rendered
//     ahead of the text part regardless of creation order.
//   - PartToolInvocation: ToolCallID/ToolName/Args describe the request,
//     Status tracks pending → executing → success|error, and Result or
//     Error holds the outcome.
//
// A message holds at most one text part and at most one reasoning part;
// tool-invocation parts may repeat, ordered by arrival.
type Part struct {
	Kind PartKind `json:"kind"`

	Text string `json:"text,omitempty"`

	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Status     ToolStatus     `json:"status,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}
