// Package mcp exposes the tool registry to external agent clients over the
// Model Context Protocol. Every registered tool is mirrored one-to-one; the
// handlers go through the same Dispatcher as chat messages, so both surfaces
// share validation and envelope semantics.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kakehashi/kakehashi/common/version"
	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// NewServer builds an MCP server with one tool per registry entry.
func NewServer(registry *tools.Registry, dispatcher *tools.Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(
		"kakehashi",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, spec := range registry.Catalog() {
		s.AddTool(buildTool(spec), buildHandler(dispatcher, spec.Name))
	}
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func buildTool(spec tools.Spec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, arg := range spec.Required {
		opts = append(opts, mcp.WithString(arg,
			mcp.Required(),
			mcp.Description(arg),
		))
	}
	for _, arg := range spec.Optional {
		opts = append(opts, mcp.WithString(arg,
			mcp.Description(arg),
		))
	}
	return mcp.NewTool(spec.Name, opts...)
}

// buildHandler routes one MCP call through the dispatcher. Failure envelopes
// become MCP error results; either way the client receives the serialized
// envelope, same as the chat surface before rendering.
func buildHandler(dispatcher *tools.Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := dispatcher.Dispatch(ctx, name, req.GetArguments())
		if !res.OK {
			return mcp.NewToolResultError(res.JSON()), nil
		}
		return mcp.NewToolResultText(res.JSON()), nil
	}
}
