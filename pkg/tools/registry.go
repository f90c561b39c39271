package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registry holds the MCP tool registrations of the charge point service.
type Registry struct {
	logger *slog.Logger
	finder *ChargePointFinder
}

// NewRegistry creates a new MCP tool registry.
func NewRegistry(logger *slog.Logger, finder *ChargePointFinder) *Registry {
	return &Registry{
		logger: logger,
		finder: finder,
	}
}

// ToolDefinition represents an MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        FindAvailableChargePointsName,
			Description: "Find available charge points near an address",
			Tool:        FindAvailableChargePointsTool(),
			Handler:     r.finder.HandleFindAvailableChargePoints,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}
