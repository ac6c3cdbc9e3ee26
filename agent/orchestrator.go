// Package agent contains the chat orchestration engine: the state
// machine that drives streaming rounds against a provider, merges chunks
// into the transcript, executes model-requested tools in order, and
// gates mutations behind user confirmation.
//
// All transcript mutation happens on the single goroutine that owns a
// round; the orchestrator's mutex only protects snapshot reads from the
// UI and the handoff points (stop, confirm, reject).
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"velo/config"
	"velo/model"
	"velo/tools"
)

// ErrRoundInFlight is returned by Send while a round is active.
var ErrRoundInFlight = errors.New("a response is already in progress")

// ErrConfirmationPending is returned by Send while a tool confirmation
// is awaiting a decision.
var ErrConfirmationPending = errors.New("a tool confirmation is pending")

var errStopped = errors.New("stopped by user")

// ConfigResolver produces the immutable per-round configuration. It is
// consulted once at round start and the result is never mutated
// mid-round.
type ConfigResolver func() model.AgentConfig

// Orchestrator owns the message transcript and the public control
// surface the UI drives: Send, Stop, ConfirmTool, RejectTool, Reload,
// plus the read-only observables Messages, IsLoading, Err and
// PendingConfirmation.
type Orchestrator struct {
	provider model.Provider
	registry *tools.Registry
	gate     *ConfirmationGate
	resolve  ConfigResolver
	notify   func()

	mu       sync.Mutex
	messages []*model.Message
	loading  bool
	lastErr  error

	stopped atomic.Bool
	cancel  context.CancelFunc
}

// New creates an orchestrator. notify is invoked after every observable
// state change so the UI can re-render; it may be nil and must not block.
func New(provider model.Provider, registry *tools.Registry, resolve ConfigResolver, autoAccept bool, notify func()) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		registry: registry,
		resolve:  resolve,
		notify:   notify,
	}
	o.gate = NewConfirmationGate(autoAccept, o.changed)
	return o
}

// Send appends a user message and an assistant placeholder and begins
// Round 1. It rejects input while a round is in flight or a confirmation
// is outstanding.
func (o *Orchestrator) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message is empty")
	}

	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return ErrRoundInFlight
	}
	if o.gate.Pending() != nil {
		o.mu.Unlock()
		return ErrConfirmationPending
	}

	user := model.NewMessage(model.RoleUser, text)
	asst := model.NewMessage(model.RoleAssistant, "")
	o.messages = append(o.messages, user, asst)
	o.beginRoundLocked()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()
	o.changed()

	go o.runTurn(ctx, asst)
	return nil
}

// Reload re-submits the last user message as a fresh Round 1, discarding
// the previous assistant response.
func (o *Orchestrator) Reload() error {
	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return ErrRoundInFlight
	}

	lastUser := -1
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].Role == model.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser == -1 {
		o.mu.Unlock()
		return fmt.Errorf("nothing to reload")
	}

	asst := model.NewMessage(model.RoleAssistant, "")
	o.messages = append(o.messages[:lastUser+1], asst)
	o.beginRoundLocked()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()
	o.changed()

	go o.runTurn(ctx, asst)
	return nil
}

// Stop cancels the active round. Chunks merged so far are preserved, and
// an in-flight tool execution is allowed to finish, but its result never
// triggers a follow-up round.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)

	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// ConfirmTool resolves the outstanding confirmation, letting the gated
// tool call proceed.
func (o *Orchestrator) ConfirmTool() {
	o.gate.Confirm()
}

// RejectTool resolves the outstanding confirmation negatively; the
// reason is recorded as the tool's result so the model can adapt.
func (o *Orchestrator) RejectTool(reason string) {
	o.gate.Reject(reason)
}

// Messages returns a snapshot of the transcript. Parts slices are copied
// so the caller can render without racing the merger.
func (o *Orchestrator) Messages() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.Message, len(o.messages))
	for i, m := range o.messages {
		out[i] = *m
		out[i].Parts = append([]model.Part(nil), m.Parts...)
	}
	return out
}

// IsLoading reports whether a round is in flight.
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Err returns the transport-level error from the last round, if any.
// Tool-level failures are absorbed into the transcript instead.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// PendingConfirmation returns the outstanding confirmation, or nil.
func (o *Orchestrator) PendingConfirmation() *model.PendingConfirmation {
	return o.gate.Pending()
}

// Config returns what the resolver would hand the next round.
func (o *Orchestrator) Config() model.AgentConfig {
	return o.resolve()
}

// SetMessages replaces the transcript, used when loading a saved
// session. Rejected while a round is in flight.
func (o *Orchestrator) SetMessages(msgs []*model.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loading {
		return ErrRoundInFlight
	}
	o.messages = msgs
	o.lastErr = nil
	return nil
}

func (o *Orchestrator) beginRoundLocked() {
	o.loading = true
	o.lastErr = nil
	o.stopped.Store(false)
}

// runTurn drives one user turn: Round 1, then tool phases and follow-up
// rounds until a round produces no tool results or the step ceiling is
// reached. It is the only goroutine that mutates the transcript while it
// runs.
func (o *Orchestrator) runTurn(ctx context.Context, asst *model.Message) {
	defer func() {
		o.mu.Lock()
		o.loading = false
		o.cancel = nil
		o.mu.Unlock()
		o.changed()
	}()

	cfg := o.resolve()
	outbound := o.flattenTranscript(asst)

	for step := 1; ; step++ {
		toolDefs := o.registry.Definitions()
		if cfg.MaxSteps > 0 && step > cfg.MaxSteps {
			// Past the ceiling the model must answer with what it has.
			toolDefs = nil
		}

		merger := newStreamMerger(asst)
		req := model.ChatRequest{
			Messages:     outbound,
			Tools:        toolDefs,
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}

		err := o.provider.ChatStream(ctx, req, func(chunk model.StreamChunk) error {
			// Consulted before every chunk application; once stopped,
			// the transcript stays in its last-merged state.
			if o.stopped.Load() {
				return errStopped
			}
			o.mu.Lock()
			merger.Apply(chunk)
			o.mu.Unlock()
			o.changed()
			return nil
		})

		if o.stopped.Load() {
			return
		}
		if err != nil && !errors.Is(err, errStopped) && !errors.Is(err, context.Canceled) {
			o.setErr(err)
			return
		}
		if merger.streamErr != nil {
			o.setErr(merger.streamErr)
			return
		}

		if len(merger.queued) == 0 {
			// Settled.
			return
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Orchestrator] Step %d: executing %d tool calls", step, len(merger.queued))
		}

		results := o.executeTools(ctx, asst, merger.queued)

		if o.stopped.Load() || len(results) == 0 {
			// Cancellation discards the results from triggering a
			// follow-up round; the recorded parts remain.
			return
		}

		outbound = append(outbound, syntheticToolCallMessage(asst, merger.queued))
		outbound = append(outbound, results...)
	}
}

// flattenTranscript builds the outbound role/content list from all prior
// transcript entries, excluding the in-progress placeholder.
func (o *Orchestrator) flattenTranscript(placeholder *model.Message) []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.Message, 0, len(o.messages))
	for _, m := range o.messages {
		if m == placeholder {
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, model.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

// syntheticToolCallMessage is the assistant entry that precedes the tool
// results in a follow-up round's outbound list: the streamed text plus a
// description of the calls it made.
func syntheticToolCallMessage(asst *model.Message, queued []model.PendingToolCall) model.Message {
	var b strings.Builder
	if asst.Content != "" {
		b.WriteString(asst.Content)
		b.WriteString("\n")
	}
	for _, call := range queued {
		b.WriteString(fmt.Sprintf("[tool call] %s(%s)\n", call.Name, encodeToolContent(call.Args)))
	}
	return model.Message{
		Role:    model.RoleAssistant,
		Content: strings.TrimRight(b.String(), "\n"),
	}
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.changed()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Orchestrator] Round failed: %v", err)
	}
}

func (o *Orchestrator) changed() {
	if o.notify != nil {
		o.notify()
	}
}
