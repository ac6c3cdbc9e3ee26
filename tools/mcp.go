package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"velo/config"
)

// MCPServer manages one external MCP server whose tools are exposed
// through the registry, namespaced "<id>.<tool>".
type MCPServer struct {
	ID     string
	client *client.Client
}

// StartMCPServer launches a stdio MCP server, initializes the protocol
// handshake, and registers every tool it advertises into the registry.
// MCP tools never request confirmation; only the builtin database tools
// mutate the connected database.
func StartMCPServer(ctx context.Context, r *Registry, id, command string, args, env []string) (*MCPServer, error) {
	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", id, err)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "Velo",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", id, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools for %s: %w", id, err)
	}

	srv := &MCPServer{ID: id, client: mcpClient}

	for _, tool := range toolsResult.Tools {
		remoteName := tool.Name
		err := r.Register(&Tool{
			Name:        id + "." + remoteName,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				return srv.call(ctx, remoteName, args)
			},
		})
		if err != nil {
			mcpClient.Close()
			return nil, err
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Registered %d tools from server %s", len(toolsResult.Tools), id)
	}

	return srv, nil
}

func (s *MCPServer) call(ctx context.Context, name string, args map[string]any) (any, error) {
	result, err := s.client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool %s failed: %w", name, err)
	}

	// MCP results carry a content array; flatten it to a JSON value the
	// model can read back.
	raw, err := json.Marshal(result.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MCP result: %w", err)
	}
	var content any
	if err := json.Unmarshal(raw, &content); err != nil {
		content = string(raw)
	}

	if result.IsError {
		return nil, fmt.Errorf("MCP tool %s reported an error: %s", name, string(raw))
	}
	return content, nil
}

// Close shuts the server process down.
func (s *MCPServer) Close() error {
	return s.client.Close()
}
