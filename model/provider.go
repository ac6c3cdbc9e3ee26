package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (Anthropic, OpenAI,
// OpenRouter, Ollama).
//
// The interface lives in the model package rather than the provider
// package to avoid import cycles: provider implementations import model,
// and the agent layer uses Provider without importing provider.
type Provider interface {
	// ChatStream sends a request and delivers chunks to onChunk in
	// arrival order. It returns once the stream terminates; a terminal
	// error chunk or a returned error both end the round.
	ChatStream(ctx context.Context, req ChatRequest, onChunk ChunkHandler) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the active model name used for API calls.
	GetModel() string

	// GetDisplayName returns the model name formatted for UI display.
	// For OpenRouter this strips the vendor prefix.
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error
}

// ChatRequest is one outbound round: the flattened transcript plus the
// per-round configuration resolved at round start.
type ChatRequest struct {
	Messages     []Message
	Tools        []mcptypes.Tool
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64
}

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	// Name is the display name shown in the UI.
	Name string
	// InternalName is the identifier sent to the API. For OpenRouter
	// this keeps the vendor prefix.
	InternalName string
	// Provider is the owning provider's ID.
	Provider string
	// Size in bytes, when the provider reports one (Ollama only).
	Size int64
}

// AgentConfig is the immutable per-round configuration, resolved from a
// (provider, mode) pair when a round starts and never mutated mid-round.
type AgentConfig struct {
	Provider     string
	Model        string
	Temperature  float64
	MaxTokens    int64
	MaxSteps     int
	SystemPrompt string
}
