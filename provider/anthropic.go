package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"velo/model"
)

// AnthropicProvider implements model.Provider using the official
// Anthropic Go SDK with streaming and native tool use.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
	apiKey  string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, modelName string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if modelName != "" {
		anthropicModel = anthropic.Model(modelName)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropicModel,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// ChatStream implements model.Provider.ChatStream. Text and thinking
// deltas are forwarded as they arrive; completed tool calls are emitted
// after the stream ends, from the accumulated message, followed by the
// done chunk.
func (p *AnthropicProvider) ChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	messages, systemBlocks := convertToAnthropicMessages(req.Messages)

	if req.SystemPrompt != "" {
		systemBlocks = append([]anthropic.TextBlockParam{{Text: req.SystemPrompt}}, systemBlocks...)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096 // Required by the Anthropic API
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = ConvertToolsToAnthropic(req.Tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()

		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("error accumulating message: %w", err)
		}

		if eventVariant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := onChunk(model.StreamChunk{Type: model.ChunkTextDelta, Text: deltaVariant.Text}); err != nil {
					return err
				}
			case anthropic.ThinkingDelta:
				if err := onChunk(model.StreamChunk{Type: model.ChunkReasoning, Text: deltaVariant.Thinking}); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}

	// Tool use blocks are complete only once the stream finishes.
	for _, block := range msg.Content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			chunk := model.StreamChunk{
				Type: model.ChunkToolCall,
				ToolCall: &model.ToolCall{
					ID:        toolUse.ID,
					Name:      toolUse.Name,
					Arguments: string(toolUse.Input),
				},
			}
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
	}

	return onChunk(model.StreamChunk{Type: model.ChunkDone})
}

// ListModels implements model.Provider.ListModels. Anthropic has no
// model-list API, so this returns a curated list of known Claude models.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:         string(m),
			InternalName: string(m),
			Provider:     "anthropic",
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// GetDisplayName implements model.Provider.GetDisplayName.
func (p *AnthropicProvider) GetDisplayName() string {
	return string(p.model)
}

// SetModel implements model.Provider.SetModel.
func (p *AnthropicProvider) SetModel(modelName string) {
	p.model = anthropic.Model(modelName)
}

// Ping implements model.Provider.Ping with a minimal request, since
// Anthropic has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

// convertToAnthropicMessages converts transcript messages to Anthropic
// format, splitting out system entries into system blocks.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	converted := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			// Anthropic takes system text as a separate parameter.
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleAssistant:
			converted = append(converted,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))

		case model.RoleTool:
			converted = append(converted,
				anthropic.NewUserMessage(anthropic.NewTextBlock(
					fmt.Sprintf("Tool result (%s): %s", msg.ToolCallID, msg.Content))))

		default:
			converted = append(converted,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return converted, systemBlocks
}
