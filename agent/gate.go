package agent

import (
	"context"
	"fmt"
	"sync"

	"velo/config"
	"velo/model"
	"velo/tools"
)

// RejectionError is returned by the gate when the user rejects a mutating
// tool call. The pipeline records the reason as the tool's result so the
// model can adapt in the follow-up round.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Reason == "" {
		return "rejected by user"
	}
	return fmt.Sprintf("rejected by user: %s", e.Reason)
}

type decision struct {
	approved bool
	reason   string
}

// ConfirmationGate suspends the tool pipeline on mutating calls until the
// user confirms or rejects. At most one confirmation is outstanding at a
// time: the pipeline is strictly sequential, so later mutating calls in
// the same batch queue behind the one being decided.
type ConfirmationGate struct {
	mu         sync.Mutex
	pending    *model.PendingConfirmation
	decisionCh chan decision

	// AutoAccept bypasses suspension entirely; the classification path
	// is unchanged.
	autoAccept bool

	notify func()
}

// NewConfirmationGate creates a gate. notify is invoked whenever the
// pending confirmation appears or clears; it may be nil.
func NewConfirmationGate(autoAccept bool, notify func()) *ConfirmationGate {
	return &ConfirmationGate{autoAccept: autoAccept, notify: notify}
}

// Pending returns a copy of the outstanding confirmation, or nil.
func (g *ConfirmationGate) Pending() *model.PendingConfirmation {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	p := *g.pending
	return &p
}

// CheckConfirmation blocks until the call may proceed. Non-mutating calls
// pass through immediately. For mutating calls it publishes the singleton
// PendingConfirmation and suspends until Confirm or Reject resolves it,
// or ctx is cancelled.
func (g *ConfirmationGate) CheckConfirmation(ctx context.Context, tool *tools.Tool, call model.PendingToolCall) error {
	if tool.Mutating == nil || !tool.Mutating(call.Args) {
		return nil
	}
	if g.autoAccept {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Gate] Auto-accepting mutating tool %s", call.Name)
		}
		return nil
	}

	ch := make(chan decision, 1)

	g.mu.Lock()
	g.pending = &model.PendingConfirmation{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		SQL:        tool.MutationSQL(call.Args),
		IsMutation: true,
	}
	g.decisionCh = ch
	g.mu.Unlock()
	g.changed()

	select {
	case <-ctx.Done():
		g.clear()
		return ctx.Err()
	case d := <-ch:
		g.clear()
		if !d.approved {
			return &RejectionError{Reason: d.reason}
		}
		return nil
	}
}

// Confirm resolves the outstanding confirmation, letting the call
// proceed. A no-op when nothing is pending.
func (g *ConfirmationGate) Confirm() {
	g.resolve(decision{approved: true})
}

// Reject resolves the outstanding confirmation with the user's reason.
func (g *ConfirmationGate) Reject(reason string) {
	g.resolve(decision{approved: false, reason: reason})
}

func (g *ConfirmationGate) resolve(d decision) {
	g.mu.Lock()
	ch := g.decisionCh
	g.decisionCh = nil
	g.mu.Unlock()

	if ch != nil {
		ch <- d
	}
}

func (g *ConfirmationGate) clear() {
	g.mu.Lock()
	g.pending = nil
	g.decisionCh = nil
	g.mu.Unlock()
	g.changed()
}

func (g *ConfirmationGate) changed() {
	if g.notify != nil {
		g.notify()
	}
}
