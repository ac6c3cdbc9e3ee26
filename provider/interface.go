// Package provider implements the streaming transport to each supported
// LLM backend (Anthropic, OpenAI, OpenRouter, Ollama).
//
// Velo's core stays provider-agnostic: every implementation converts its
// SDK-specific events into model.StreamChunk values and delivers them in
// arrival order through the caller's ChunkHandler. Tool definitions
// arrive in MCP schema form and are converted to each vendor's wire
// format here.
//
// The Provider interface itself is defined in the model package
// (model/provider.go) to avoid import cycles; this package implements
// model.Provider.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // Unused for Ollama
}
