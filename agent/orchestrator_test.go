package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"velo/model"
	"velo/provider/testutil"
	"velo/tools"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitSettled(t *testing.T, o *Orchestrator) {
	t.Helper()
	waitFor(t, "round to settle", func() bool { return !o.IsLoading() })
}

func testConfig(maxSteps int) ConfigResolver {
	return func() model.AgentConfig {
		return model.AgentConfig{
			Provider:    "mock",
			Model:       "mock-model",
			Temperature: 0.3,
			MaxTokens:   1024,
			MaxSteps:    maxSteps,
		}
	}
}

// queryTool is a read-only tool recording every execution.
func queryTool(executions *[]string, mu *sync.Mutex) *tools.Tool {
	return &tools.Tool{
		Name:        "run_sql_query",
		Description: "Run a SQL query",
		InputSchema: mcptypes.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"sql": map[string]any{"type": "string"}},
			Required:   []string{"sql"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			mu.Lock()
			*executions = append(*executions, args["sql"].(string))
			mu.Unlock()
			return map[string]any{"rows": []any{}, "rowCount": 0}, nil
		},
	}
}

func toolChunk(id, name, args string) model.StreamChunk {
	return model.StreamChunk{Type: model.ChunkToolCall, ToolCall: &model.ToolCall{
		ID: id, Name: name, Arguments: args,
	}}
}

func TestSendStreamsIntoSingleAssistantMessage(t *testing.T) {
	prov := testutil.ScriptedProvider("mock-model", []model.StreamChunk{
		{Type: model.ChunkReasoning, Text: "thinking"},
		{Type: model.ChunkTextDelta, Text: "Hello"},
		{Type: model.ChunkTextDelta, Text: ", user"},
		{Type: model.ChunkDone},
	})

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitSettled(t, o)

	msgs := o.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant, got %d messages", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("unexpected user message %+v", msgs[0])
	}

	asst := msgs[1]
	if asst.Role != model.RoleAssistant {
		t.Fatalf("expected assistant, got %s", asst.Role)
	}
	if asst.Content != "Hello, user" {
		t.Errorf("expected 'Hello, user', got %q", asst.Content)
	}
	if asst.Parts[0].Kind != model.PartReasoning || asst.Parts[0].Text != "thinking" {
		t.Errorf("expected leading reasoning part, got %+v", asst.Parts[0])
	}
	if err := o.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendRejectedWhileRoundInFlight(t *testing.T) {
	release := make(chan struct{})
	prov := testutil.NewMockProvider("mock-model")
	prov.ChatStreamFunc = func(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
		<-release
		return onChunk(model.StreamChunk{Type: model.ChunkDone})
	}

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("first"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := o.Send("second"); !errors.Is(err, ErrRoundInFlight) {
		t.Errorf("expected ErrRoundInFlight, got %v", err)
	}

	close(release)
	waitSettled(t, o)

	if err := o.Send("third"); err != nil {
		t.Errorf("Send after settle: %v", err)
	}
	waitSettled(t, o)
}

func TestToolRoundEscalation(t *testing.T) {
	var executions []string
	var mu sync.Mutex

	registry := tools.NewRegistry()
	if err := registry.Register(queryTool(&executions, &mu)); err != nil {
		t.Fatal(err)
	}

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "Checking."},
			toolChunk("c1", "run_sql_query", `{"sql":"SELECT * FROM users"}`),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: " No users found."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("how many users?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitSettled(t, o)

	mu.Lock()
	if len(executions) != 1 || executions[0] != "SELECT * FROM users" {
		t.Errorf("unexpected executions %v", executions)
	}
	mu.Unlock()

	// Both rounds stream into the same assistant message.
	msgs := o.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(msgs))
	}
	asst := msgs[1]
	if asst.Content != "Checking. No users found." {
		t.Errorf("expected merged text across rounds, got %q", asst.Content)
	}

	part := asst.ToolInvocation("c1")
	if part == nil {
		t.Fatal("expected tool-invocation part")
	}
	if part.Status != model.ToolSuccess {
		t.Errorf("expected success status, got %s", part.Status)
	}
	if part.Result == nil {
		t.Error("expected recorded result")
	}

	// The follow-up request carries the synthetic assistant entry and
	// the tool result; the transcript itself holds neither.
	if len(prov.Requests) != 2 {
		t.Fatalf("expected 2 provider rounds, got %d", len(prov.Requests))
	}
	second := prov.Requests[1].Messages

	var sawToolResult, sawSynthetic bool
	for _, m := range second {
		if m.Role == model.RoleTool && m.ToolCallID == "c1" {
			sawToolResult = true
		}
		if m.Role == model.RoleAssistant && strings.Contains(m.Content, "[tool call] run_sql_query") {
			sawSynthetic = true
		}
	}
	if !sawSynthetic {
		t.Error("round 2 request missing synthetic assistant tool-call entry")
	}
	if !sawToolResult {
		t.Error("round 2 request missing tool result entry")
	}
}

func TestSequentialExecutionOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex

	registry := tools.NewRegistry()
	slow := &tools.Tool{
		Name: "slow_tool",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			time.Sleep(50 * time.Millisecond)
			mu.Lock()
			order = append(order, "slow")
			mu.Unlock()
			return "slow done", nil
		},
	}
	fast := &tools.Tool{
		Name: "fast_tool",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			mu.Lock()
			order = append(order, "fast")
			mu.Unlock()
			return "fast done", nil
		},
	}
	registry.Register(slow)
	registry.Register(fast)

	prov := testutil.ScriptedProvider("mock-model", []model.StreamChunk{
		toolChunk("c1", "slow_tool", "{}"),
		toolChunk("c2", "fast_tool", "{}"),
		{Type: model.ChunkDone},
	})

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("do both"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "slow" || order[1] != "fast" {
		t.Errorf("expected arrival-order execution [slow fast], got %v", order)
	}
}

func TestToolFailureIsAbsorbed(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&tools.Tool{
		Name: "flaky",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, fmt.Errorf("table is locked")
		},
	})

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "flaky", "{}"),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "That did not work."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("try it"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	// Tool failure is conversational, not a round failure.
	if err := o.Err(); err != nil {
		t.Errorf("tool failure must not surface as round error, got %v", err)
	}

	asst := o.Messages()[1]
	part := asst.ToolInvocation("c1")
	if part == nil || part.Status != model.ToolError {
		t.Fatalf("expected error status on part, got %+v", part)
	}
	if !strings.Contains(part.Error, "table is locked") {
		t.Errorf("expected recorded error, got %q", part.Error)
	}

	// The error still produced a tool result for round 2.
	if len(prov.Requests) != 2 {
		t.Fatalf("expected a follow-up round, got %d", len(prov.Requests))
	}
	last := prov.Requests[1].Messages[len(prov.Requests[1].Messages)-1]
	if last.Role != model.RoleTool || !strings.Contains(last.Content, "table is locked") {
		t.Errorf("expected tool error entry in round 2, got %+v", last)
	}
}

func TestUnknownToolRecordedAsError(t *testing.T) {
	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "no_such_tool", "{}"),
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("go"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	part := o.Messages()[1].ToolInvocation("c1")
	if part == nil || part.Status != model.ToolError {
		t.Fatalf("expected error part, got %+v", part)
	}
	if !strings.Contains(part.Error, "unknown tool") {
		t.Errorf("expected unknown tool error, got %q", part.Error)
	}
}

func mutatingTool(executed *bool, mu *sync.Mutex) *tools.Tool {
	return &tools.Tool{
		Name: "execute_ddl",
		InputSchema: mcptypes.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"sql": map[string]any{"type": "string"}},
			Required:   []string{"sql"},
		},
		Mutating: func(args map[string]any) bool { return true },
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			mu.Lock()
			*executed = true
			mu.Unlock()
			return map[string]any{"ok": true}, nil
		},
	}
}

func TestConfirmationGateApproval(t *testing.T) {
	var executed bool
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(mutatingTool(&executed, &mu))

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "execute_ddl", `{"sql":"DROP TABLE users"}`),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "Dropped."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("drop users"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "pending confirmation", func() bool { return o.PendingConfirmation() != nil })

	pending := o.PendingConfirmation()
	if pending.ToolName != "execute_ddl" || pending.SQL != "DROP TABLE users" {
		t.Errorf("unexpected pending confirmation %+v", pending)
	}
	if !pending.IsMutation {
		t.Error("expected IsMutation")
	}

	// Further input is rejected while the confirmation is outstanding.
	if err := o.Send("another"); !errors.Is(err, ErrRoundInFlight) {
		t.Errorf("expected rejection of input mid-confirmation, got %v", err)
	}

	mu.Lock()
	if executed {
		t.Error("tool must not execute before confirmation")
	}
	mu.Unlock()

	o.ConfirmTool()
	waitSettled(t, o)

	mu.Lock()
	if !executed {
		t.Error("tool should execute after confirmation")
	}
	mu.Unlock()

	if o.PendingConfirmation() != nil {
		t.Error("confirmation should be cleared")
	}
	part := o.Messages()[1].ToolInvocation("c1")
	if part == nil || part.Status != model.ToolSuccess {
		t.Errorf("expected success after approval, got %+v", part)
	}
}

func TestConfirmationGateRejection(t *testing.T) {
	var executed bool
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(mutatingTool(&executed, &mu))

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "execute_ddl", `{"sql":"DELETE FROM users"}`),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "Understood, I won't."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("clear the table"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "pending confirmation", func() bool { return o.PendingConfirmation() != nil })
	o.RejectTool("not now")
	waitSettled(t, o)

	mu.Lock()
	if executed {
		t.Error("rejected tool must not execute")
	}
	mu.Unlock()

	part := o.Messages()[1].ToolInvocation("c1")
	if part == nil || part.Status != model.ToolError {
		t.Fatalf("expected error part after rejection, got %+v", part)
	}
	if !strings.Contains(part.Error, "not now") {
		t.Errorf("rejection reason should be recorded, got %q", part.Error)
	}

	// The rejection reason reaches the model in the follow-up round.
	if len(prov.Requests) != 2 {
		t.Fatalf("expected follow-up round after rejection, got %d rounds", len(prov.Requests))
	}
	last := prov.Requests[1].Messages[len(prov.Requests[1].Messages)-1]
	if last.Role != model.RoleTool || !strings.Contains(last.Content, "not now") {
		t.Errorf("expected rejection reason in tool entry, got %+v", last)
	}
}

func TestAutoAcceptSkipsConfirmation(t *testing.T) {
	var executed bool
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(mutatingTool(&executed, &mu))

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "execute_ddl", `{"sql":"DROP TABLE tmp"}`),
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), true, nil)
	if err := o.Send("drop tmp"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	mu.Lock()
	defer mu.Unlock()
	if !executed {
		t.Error("auto-accept should execute without a confirmation")
	}
}

func TestStopPreservesPartialOutput(t *testing.T) {
	streamed := make(chan struct{})
	prov := testutil.NewMockProvider("mock-model")
	prov.ChatStreamFunc = func(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
		for i := 0; i < 3; i++ {
			if err := onChunk(model.StreamChunk{Type: model.ChunkTextDelta, Text: "x"}); err != nil {
				return err
			}
		}
		close(streamed)
		<-ctx.Done()
		return ctx.Err()
	}

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("long answer please"); err != nil {
		t.Fatal(err)
	}

	<-streamed
	o.Stop()
	waitSettled(t, o)

	asst := o.Messages()[1]
	if asst.Content != "xxx" {
		t.Errorf("partial output should survive cancellation, got %q", asst.Content)
	}
	if err := o.Err(); err != nil {
		t.Errorf("user cancellation is not an error, got %v", err)
	}

	// The orchestrator accepts new input after a stop.
	prov.ChatStreamFunc = func(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
		return onChunk(model.StreamChunk{Type: model.ChunkDone})
	}
	if err := o.Send("next"); err != nil {
		t.Errorf("Send after stop: %v", err)
	}
	waitSettled(t, o)
}

func TestStopLetsInFlightToolComplete(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var sawCancel, completed bool
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(&tools.Tool{
		Name: "slow_write",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			close(started)
			select {
			case <-ctx.Done():
				mu.Lock()
				sawCancel = true
				mu.Unlock()
				return nil, ctx.Err()
			case <-release:
			}
			mu.Lock()
			completed = true
			mu.Unlock()
			return map[string]any{"ok": true}, nil
		},
	})

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "slow_write", "{}"),
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("write it"); err != nil {
		t.Fatal(err)
	}

	<-started
	o.Stop()
	// If cancellation reached the executor its Done branch would win
	// this race long before the release below.
	time.Sleep(20 * time.Millisecond)
	close(release)
	waitSettled(t, o)

	mu.Lock()
	defer mu.Unlock()
	if sawCancel {
		t.Error("in-flight tool must not observe cancellation after Stop")
	}
	if !completed {
		t.Fatal("in-flight tool should run to completion")
	}

	part := o.Messages()[1].ToolInvocation("c1")
	if part == nil || part.Status != model.ToolSuccess {
		t.Errorf("completed tool should record success, got %+v", part)
	}
	if err := o.Err(); err != nil {
		t.Errorf("user cancellation is not an error, got %v", err)
	}
}

func TestBatchContinuesAfterToolFailure(t *testing.T) {
	var executions []string
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(&tools.Tool{
		Name: "flaky",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, fmt.Errorf("table is locked")
		},
	})
	registry.Register(queryTool(&executions, &mu))

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "flaky", "{}"),
			toolChunk("c2", "run_sql_query", `{"sql":"SELECT 1"}`),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "First failed, second ran."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("do both"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	// The failure of c1 must not keep c2 from running.
	mu.Lock()
	if len(executions) != 1 || executions[0] != "SELECT 1" {
		t.Errorf("expected the second call to execute, got %v", executions)
	}
	mu.Unlock()

	asst := o.Messages()[1]
	if part := asst.ToolInvocation("c1"); part == nil || part.Status != model.ToolError {
		t.Errorf("expected error status on c1, got %+v", part)
	}
	if part := asst.ToolInvocation("c2"); part == nil || part.Status != model.ToolSuccess {
		t.Errorf("expected success status on c2, got %+v", part)
	}

	// Both outcomes reach the follow-up round.
	if len(prov.Requests) != 2 {
		t.Fatalf("expected a follow-up round, got %d", len(prov.Requests))
	}
	var toolEntries int
	for _, m := range prov.Requests[1].Messages {
		if m.Role == model.RoleTool {
			toolEntries++
		}
	}
	if toolEntries != 2 {
		t.Errorf("expected 2 tool entries in round 2, got %d", toolEntries)
	}
}

func TestBatchContinuesAfterRejection(t *testing.T) {
	var executed bool
	var executions []string
	var mu sync.Mutex

	registry := tools.NewRegistry()
	registry.Register(mutatingTool(&executed, &mu))
	registry.Register(queryTool(&executions, &mu))

	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			toolChunk("c1", "execute_ddl", `{"sql":"DELETE FROM users"}`),
			toolChunk("c2", "run_sql_query", `{"sql":"SELECT 1"}`),
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "Skipped the delete."},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, registry, testConfig(5), false, nil)
	if err := o.Send("delete then check"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "pending confirmation", func() bool { return o.PendingConfirmation() != nil })
	o.RejectTool("not now")
	waitSettled(t, o)

	mu.Lock()
	if executed {
		t.Error("rejected tool must not execute")
	}
	if len(executions) != 1 || executions[0] != "SELECT 1" {
		t.Errorf("rejection must not block the next queued call, got %v", executions)
	}
	mu.Unlock()

	asst := o.Messages()[1]
	if part := asst.ToolInvocation("c1"); part == nil || part.Status != model.ToolError || !strings.Contains(part.Error, "not now") {
		t.Errorf("expected rejection recorded on c1, got %+v", part)
	}
	if part := asst.ToolInvocation("c2"); part == nil || part.Status != model.ToolSuccess {
		t.Errorf("expected success on c2 after rejection of c1, got %+v", part)
	}
}

func TestStreamErrorSurfacesAndPreservesPartial(t *testing.T) {
	prov := testutil.ScriptedProvider("mock-model", []model.StreamChunk{
		{Type: model.ChunkTextDelta, Text: "partial "},
		{Type: model.ChunkError, Err: errors.New("connection reset")},
	})

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("hello"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	if err := o.Err(); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected transport error, got %v", err)
	}
	if got := o.Messages()[1].Content; got != "partial " {
		t.Errorf("partial text should remain, got %q", got)
	}
}

func TestMaxStepsWithholdsTools(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&tools.Tool{
		Name: "loop_tool",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object", Properties: map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return "again", nil
		},
	})

	// Every scripted round requests another tool call; the ceiling has
	// to break the loop.
	loopRound := []model.StreamChunk{
		toolChunk("", "loop_tool", "{}"),
		{Type: model.ChunkDone},
	}
	prov := testutil.ScriptedProvider("mock-model",
		loopRound, loopRound, loopRound, loopRound, loopRound, loopRound, loopRound,
	)

	o := New(prov, registry, testConfig(2), false, nil)
	if err := o.Send("loop forever"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	if len(prov.Requests) < 3 {
		t.Fatalf("expected at least 3 rounds, got %d", len(prov.Requests))
	}
	for i, req := range prov.Requests {
		step := i + 1
		if step <= 2 && len(req.Tools) == 0 {
			t.Errorf("step %d should carry tool definitions", step)
		}
		if step > 2 && len(req.Tools) != 0 {
			t.Errorf("step %d should withhold tool definitions past the ceiling", step)
		}
	}
}

func TestReloadTruncatesAfterLastUserMessage(t *testing.T) {
	prov := testutil.ScriptedProvider("mock-model",
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "first answer"},
			{Type: model.ChunkDone},
		},
		[]model.StreamChunk{
			{Type: model.ChunkTextDelta, Text: "second answer"},
			{Type: model.ChunkDone},
		},
	)

	o := New(prov, tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Send("question"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	if err := o.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	waitSettled(t, o)

	msgs := o.Messages()
	if len(msgs) != 2 {
		t.Fatalf("reload must not grow the transcript, got %d messages", len(msgs))
	}
	if msgs[1].Content != "second answer" {
		t.Errorf("expected regenerated answer, got %q", msgs[1].Content)
	}

	// The reload round must not include the discarded first answer.
	second := prov.Requests[1].Messages
	for _, m := range second {
		if strings.Contains(m.Content, "first answer") {
			t.Error("discarded response leaked into reload request")
		}
	}
}

func TestReloadWithEmptyTranscript(t *testing.T) {
	o := New(testutil.NewMockProvider("mock-model"), tools.NewRegistry(), testConfig(5), false, nil)
	if err := o.Reload(); err == nil {
		t.Error("expected error reloading an empty transcript")
	}
}

func TestNotifyFiresOnStateChanges(t *testing.T) {
	var count int
	var mu sync.Mutex
	notify := func() {
		mu.Lock()
		count++
		mu.Unlock()
	}

	prov := testutil.ScriptedProvider("mock-model", []model.StreamChunk{
		{Type: model.ChunkTextDelta, Text: "hi"},
		{Type: model.ChunkDone},
	})

	o := New(prov, tools.NewRegistry(), testConfig(5), false, notify)
	if err := o.Send("hello"); err != nil {
		t.Fatal(err)
	}
	waitSettled(t, o)

	mu.Lock()
	defer mu.Unlock()
	if count < 3 {
		t.Errorf("expected notifications for send, chunks and settle, got %d", count)
	}
}
