package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"velo/model"
)

// OllamaProvider implements model.Provider against a local or remote
// Ollama server using the official API client. Ollama parses tool
// arguments server-side, so tool-call chunks carry re-encoded JSON.
type OllamaProvider struct {
	client  *api.Client
	model   string
	baseURL string
}

// NewOllamaProvider creates a new Ollama provider instance.
func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", baseURL, err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// ChatStream implements model.Provider.ChatStream. Ollama delivers
// thinking, content and tool calls interleaved in its response stream.
func (p *OllamaProvider) ChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	messages := convertToOllamaMessages(req.Messages, req.SystemPrompt)

	stream := true
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ConvertToolsToOllama(req.Tools)
	}

	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		chatReq.Options = options
	}

	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Thinking != "" {
			if err := onChunk(model.StreamChunk{Type: model.ChunkReasoning, Text: resp.Message.Thinking}); err != nil {
				return err
			}
		}
		if resp.Message.Content != "" {
			if err := onChunk(model.StreamChunk{Type: model.ChunkTextDelta, Text: resp.Message.Content}); err != nil {
				return err
			}
		}
		for _, call := range resp.Message.ToolCalls {
			chunk := model.StreamChunk{
				Type: model.ChunkToolCall,
				ToolCall: &model.ToolCall{
					Name:      call.Function.Name,
					Arguments: EncodeToolArguments(call.Function.Arguments),
				},
			}
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Ollama streaming error: %w", err)
	}

	return onChunk(model.StreamChunk{Type: model.ChunkDone})
}

// ListModels implements model.Provider.ListModels.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list Ollama models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		result = append(result, model.ModelInfo{
			Name:         m.Name,
			InternalName: m.Name,
			Provider:     "ollama",
			Size:         m.Size,
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements model.Provider.GetDisplayName.
func (p *OllamaProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements model.Provider.SetModel.
func (p *OllamaProvider) SetModel(modelName string) {
	p.model = modelName
}

// Ping implements model.Provider.Ping.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("Ollama is not reachable at %s: %w", p.baseURL, err)
	}
	return nil
}

// convertToOllamaMessages converts transcript messages to Ollama format.
// Ollama accepts a native "tool" role for results.
func convertToOllamaMessages(messages []model.Message, systemPrompt string) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)

	if systemPrompt != "" {
		result = append(result, api.Message{Role: "system", Content: systemPrompt})
	}

	for _, msg := range messages {
		result = append(result, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return result
}
