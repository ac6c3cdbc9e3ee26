// Package testutil provides mock providers for testing the agent and UI
// layers without network access.
package testutil

import (
	"context"

	"velo/model"
)

// MockProvider implements model.Provider for testing. Each method
// delegates to a configurable func field with a sensible default.
type MockProvider struct {
	ChatStreamFunc func(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	// Requests records every ChatRequest passed to ChatStream, for
	// asserting on round escalation.
	Requests []model.ChatRequest

	currentModel string
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{currentModel: modelName}
	mock.ChatStreamFunc = mock.defaultChatStream
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = func(ctx context.Context) error { return nil }
	return mock
}

// ScriptedProvider returns a mock whose ChatStream plays back one chunk
// script per round, in order. Rounds past the end of the scripts replay
// a bare done chunk.
func ScriptedProvider(modelName string, scripts ...[]model.StreamChunk) *MockProvider {
	mock := NewMockProvider(modelName)
	round := 0
	mock.ChatStreamFunc = func(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
		var script []model.StreamChunk
		if round < len(scripts) {
			script = scripts[round]
		} else {
			script = []model.StreamChunk{{Type: model.ChunkDone}}
		}
		round++

		for _, chunk := range script {
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
		return nil
	}
	return mock
}

func (m *MockProvider) defaultChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	if err := onChunk(model.StreamChunk{Type: model.ChunkTextDelta, Text: "Mock response"}); err != nil {
		return err
	}
	return onChunk(model.StreamChunk{Type: model.ChunkDone})
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", InternalName: "mock-model-1", Provider: "mock", Size: 1000},
		{Name: "mock-model-2", InternalName: "mock-model-2", Provider: "mock", Size: 2000},
	}, nil
}

// ChatStream implements model.Provider.
func (m *MockProvider) ChatStream(ctx context.Context, req model.ChatRequest, onChunk model.ChunkHandler) error {
	m.Requests = append(m.Requests, req)
	return m.ChatStreamFunc(ctx, req, onChunk)
}

// ListModels implements model.Provider.
func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

// GetModel implements model.Provider.
func (m *MockProvider) GetModel() string {
	return m.currentModel
}

// GetDisplayName implements model.Provider.
func (m *MockProvider) GetDisplayName() string {
	return m.currentModel
}

// SetModel implements model.Provider.
func (m *MockProvider) SetModel(modelName string) {
	m.currentModel = modelName
}

// Ping implements model.Provider.
func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
