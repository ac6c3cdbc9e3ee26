package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"velo/config"
	"velo/model"
	"velo/tools"
)

// executeTools drains the queued calls strictly in arrival order: a call
// starts only after the previous call's result has been recorded. This
// preserves causal ordering when a later call depends on an earlier
// call's side effect (listing tables after a DDL call must see the new
// table).
//
// Every call produces a recorded artifact: the terminal status on its
// tool-invocation part plus a RoleTool entry carrying the JSON-encoded
// result or error, returned for the follow-up round's outbound list.
// Per-call failures never abort the rest of the queue.
func (o *Orchestrator) executeTools(ctx context.Context, asst *model.Message, queued []model.PendingToolCall) []model.Message {
	var results []model.Message

	for _, call := range queued {
		if o.stopped.Load() {
			break
		}

		o.mu.Lock()
		if part := asst.ToolInvocation(call.ID); part != nil {
			part.Status = model.ToolExecuting
		}
		o.mu.Unlock()
		o.changed()

		result, err := o.runTool(ctx, call)

		o.mu.Lock()
		var content string
		if err != nil {
			if part := asst.ToolInvocation(call.ID); part != nil {
				part.Status = model.ToolError
				part.Error = err.Error()
			}
			content = encodeToolContent(map[string]any{"error": err.Error()})
		} else {
			if part := asst.ToolInvocation(call.ID); part != nil {
				part.Status = model.ToolSuccess
				part.Result = result
			}
			content = encodeToolContent(result)
		}
		o.mu.Unlock()
		o.changed()

		results = append(results, model.Message{
			Role:       model.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
		})
	}

	return results
}

// runTool performs one dispatch: registry lookup, argument validation,
// confirmation gating, then execution. All failure modes come back as
// ordinary errors for recording; nothing propagates past the pipeline.
func (o *Orchestrator) runTool(ctx context.Context, call model.PendingToolCall) (any, error) {
	tool := o.registry.Lookup(call.Name)
	if tool == nil {
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	if err := tools.ValidateArgs(tool, call.Args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
	}

	if err := o.gate.CheckConfirmation(ctx, tool, call); err != nil {
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			return nil, rejection
		}
		return nil, err
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Pipeline] Executing tool %s (%s)", call.Name, call.ID)
	}

	// A call that has started runs to completion even when the turn is
	// cancelled, so a backend mutation is never left half-applied. Stop
	// takes effect between calls, not inside one.
	return tool.Execute(context.WithoutCancel(ctx), call.Args)
}

func encodeToolContent(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode tool result: %v"}`, err)
	}
	return string(data)
}
