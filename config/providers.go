package config

import (
	"fmt"

	"velo/model"
)

// Modes the orchestrator can run in. Chat answers from knowledge in a
// single round; agent gets the tool set and multiple rounds up to MaxSteps.
const (
	ModeChat  = "chat"
	ModeAgent = "agent"
)

const chatSystemPrompt = `You are a helpful SQL assistant embedded in a database client. Answer questions about SQL and databases concisely. You do not have access to the user's database in this mode; say so when asked about its contents.`

const agentSystemPrompt = `You are a database assistant embedded in a database client. You can inspect the connected database and run SQL using the provided tools. Use list_tables and describe_table to learn the schema before writing queries. Only use execute_ddl for schema changes. Keep answers short and grounded in the actual query results.`

// defaultModelFor returns the model used when the provider entry does
// not name one.
func defaultModelFor(providerID string) string {
	switch providerID {
	case "anthropic":
		return "claude-sonnet-4-5-20250929"
	case "openai":
		return "gpt-4o-mini"
	case "openrouter":
		return "meta-llama/llama-3.2-90b-instruct"
	case "ollama":
		return "llama3.1:latest"
	default:
		return ""
	}
}

// DefaultBaseURL returns the well-known endpoint for a provider ID.
func DefaultBaseURL(providerID string) string {
	switch providerID {
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "ollama":
		return "http://localhost:11434"
	default:
		return ""
	}
}

// ResolveAgentConfig resolves the immutable per-round configuration from
// a (provider, mode) pair. The result is fixed at round start and never
// mutated mid-round.
func (c *Config) ResolveAgentConfig(providerID, mode string) (model.AgentConfig, error) {
	entry := c.Provider(providerID)
	if entry == nil || !entry.Enabled {
		return model.AgentConfig{}, fmt.Errorf("provider %q is not configured", providerID)
	}

	modelName := entry.Model
	if modelName == "" {
		modelName = defaultModelFor(providerID)
	}

	cfg := model.AgentConfig{
		Provider: providerID,
		Model:    modelName,
	}

	switch mode {
	case ModeChat:
		cfg.Temperature = 0.7
		cfg.MaxTokens = 4096
		cfg.MaxSteps = 1
		cfg.SystemPrompt = chatSystemPrompt
	case ModeAgent, "":
		cfg.Temperature = 0.3
		cfg.MaxTokens = 4096
		cfg.MaxSteps = 5
		cfg.SystemPrompt = agentSystemPrompt
	default:
		return model.AgentConfig{}, fmt.Errorf("unknown mode %q", mode)
	}

	if c.SystemPrompt != "" {
		cfg.SystemPrompt = c.SystemPrompt
	}

	return cfg, nil
}
