package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"velo/model"
)

// OpenAIProvider implements model.Provider using the official OpenAI Go
// SDK.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a new OpenAI provider instance. Returns an
// error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, modelName string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   modelName,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// ChatStream implements model.Provider.ChatStream.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	return openAIChatStream(ctx, p.client, p.model, req, onChunk)
}

// openAIChatStream is the streaming loop shared by the OpenAI and
// OpenRouter providers, which speak the same API. Content deltas are
// forwarded immediately; tool calls are emitted as the accumulator
// finishes each one.
func openAIChatStream(ctx context.Context, client openai.Client, modelName string, req model.ChatRequest, onChunk model.ChunkHandler) error {
	messages := convertToOpenAIMessages(req.Messages, req.SystemPrompt)

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(modelName),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		params.Tools = ConvertToolsToOpenAI(req.Tools)
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			streamChunk := model.StreamChunk{
				Type: model.ChunkToolCall,
				ToolCall: &model.ToolCall{
					Name:      tool.Name,
					Arguments: tool.Arguments,
				},
			}
			if err := onChunk(streamChunk); err != nil {
				return err
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onChunk(model.StreamChunk{Type: model.ChunkTextDelta, Text: chunk.Choices[0].Delta.Content}); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}

	return onChunk(model.StreamChunk{Type: model.ChunkDone})
}

// ListModels implements model.Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         m.ID,
			InternalName: m.ID,
			Provider:     "openai",
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements model.Provider.GetDisplayName.
func (p *OpenAIProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements model.Provider.SetModel.
func (p *OpenAIProvider) SetModel(modelName string) {
	p.model = modelName
}

// Ping implements model.Provider.Ping by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// convertToOpenAIMessages converts transcript messages to OpenAI format.
// Tool results travel as user messages; the text protocol keeps the
// transcript valid without requiring assistant tool_call entries.
func convertToOpenAIMessages(messages []model.Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)

	if systemPrompt != "" {
		result = append(result, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		case model.RoleTool:
			result = append(result, openai.UserMessage(
				fmt.Sprintf("Tool result (%s): %s", msg.ToolCallID, msg.Content)))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}
