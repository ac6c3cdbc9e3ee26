package agent

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"velo/model"
)

// streamMerger folds one round's chunks into the in-progress assistant
// message and queues tool calls for the execution phase. Chunks are
// applied in arrival order on the round's goroutine, so plain append
// semantics are safe without locking here; the orchestrator holds its
// lock around each Apply.
type streamMerger struct {
	msg *model.Message

	queued    []model.PendingToolCall
	streamErr error
	done      bool
}

func newStreamMerger(msg *model.Message) *streamMerger {
	return &streamMerger{msg: msg}
}

// Apply folds a single chunk into the message. After an error chunk no
// further chunks are applied.
func (m *streamMerger) Apply(chunk model.StreamChunk) {
	if m.streamErr != nil {
		return
	}

	switch chunk.Type {
	case model.ChunkTextDelta:
		m.msg.AppendText(chunk.Text)

	case model.ChunkReasoning:
		m.msg.AppendReasoning(chunk.Text)

	case model.ChunkToolCall:
		m.applyToolCall(chunk.ToolCall)

	case model.ChunkDone:
		m.done = true

	case model.ChunkError:
		m.streamErr = chunk.Err
	}
}

func (m *streamMerger) applyToolCall(call *model.ToolCall) {
	if call == nil {
		return
	}

	id := call.ID
	if id == "" {
		id = uuid.New().String()
	}

	args, parseErr := parseToolArguments(call.Arguments)
	part := m.msg.AddToolInvocation(id, call.Name, args)

	if parseErr != nil {
		// Malformed arguments never reach the execution queue; the
		// failure is recorded on the part instead.
		part.Status = model.ToolError
		part.Error = fmt.Sprintf("invalid tool arguments: %v", parseErr)
		return
	}

	m.queued = append(m.queued, model.PendingToolCall{
		ID:   id,
		Name: call.Name,
		Args: args,
	})
}

func parseToolArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
