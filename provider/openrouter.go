package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"velo/model"
)

// OpenRouterProvider implements model.Provider against OpenRouter's API,
// which is OpenAI-compatible; it reuses the OpenAI SDK and streaming
// loop. Model names keep their vendor prefix on the wire
// ("qwen/qwen3-coder") and are stripped for display.
type OpenRouterProvider struct {
	client  openai.Client
	model   string
	baseURL string
	apiKey  string
}

// NewOpenRouterProvider creates a new OpenRouter provider instance.
// Returns an error if the API key is missing.
func NewOpenRouterProvider(baseURL, apiKey, modelName string) (*OpenRouterProvider, error) {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if modelName == "" {
		modelName = "meta-llama/llama-3.2-90b-instruct"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenRouterProvider{
		client:  client,
		model:   modelName,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// ChatStream implements model.Provider.ChatStream.
func (p *OpenRouterProvider) ChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	return openAIChatStream(ctx, p.client, p.model, req, onChunk)
}

// ListModels implements model.Provider.ListModels. The full vendor-
// prefixed name is kept as InternalName for API calls.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenRouter models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         stripVendorPrefix(m.ID),
			InternalName: m.ID,
			Provider:     "openrouter",
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel, returning the full
// vendor-prefixed name.
func (p *OpenRouterProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements model.Provider.GetDisplayName, stripping the
// vendor prefix.
func (p *OpenRouterProvider) GetDisplayName() string {
	return stripVendorPrefix(p.model)
}

// SetModel implements model.Provider.SetModel.
func (p *OpenRouterProvider) SetModel(modelName string) {
	p.model = modelName
}

// Ping implements model.Provider.Ping by listing models.
func (p *OpenRouterProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenRouter ping failed: %w", err)
	}
	return nil
}

func stripVendorPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
