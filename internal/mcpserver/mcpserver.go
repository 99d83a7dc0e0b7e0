// Package mcpserver exposes the same read-only status/reference/
// checkpoint surface as internal/httpapi, as MCP tools for agent-facing
// callers (spec.md §6).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"normcode.dev/core/internal/httpapi"
)

// Server wraps a Service behind an MCP tool server.
type Server struct {
	svc    *httpapi.Service
	server *server.MCPServer
}

func New(svc *httpapi.Service) *Server {
	s := &Server{svc: svc}

	mcpServer := server.NewMCPServer(
		"normcode",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List every run the checkpoint store knows about."),
		),
		s.handleListRuns,
	)

	mcpServer.AddTool(
		mcp.NewTool("run_status",
			mcp.WithDescription("Get per-inference status for a run, live if it is currently executing in this process, otherwise from its latest checkpoint."),
			mcp.WithString("run_id",
				mcp.Required(),
				mcp.Description("Run identifier"),
			),
		),
		s.handleRunStatus,
	)

	mcpServer.AddTool(
		mcp.NewTool("concept_reference",
			mcp.WithDescription("Get a concept's current Reference (axes, shape, tensor) for a run."),
			mcp.WithString("run_id",
				mcp.Required(),
				mcp.Description("Run identifier"),
			),
			mcp.WithString("concept_name",
				mcp.Required(),
				mcp.Description("Concept name"),
			),
		),
		s.handleConceptReference,
	)

	mcpServer.AddTool(
		mcp.NewTool("checkpoint",
			mcp.WithDescription("Get a run's checkpoint snapshot. Omit cycle for the latest."),
			mcp.WithString("run_id",
				mcp.Required(),
				mcp.Description("Run identifier"),
			),
			mcp.WithNumber("cycle",
				mcp.Description("Cycle number; omit for the latest snapshot"),
			),
		),
		s.handleCheckpoint,
	)
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.svc.ListRuns(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list runs failed: %v", err)), nil
	}
	return jsonResult(runs)
}

func (s *Server) handleRunStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	status, err := s.svc.Status(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run status failed: %v", err)), nil
	}
	return jsonResult(status)
}

func (s *Server) handleConceptReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	name := request.GetString("concept_name", "")
	if runID == "" || name == "" {
		return mcp.NewToolResultError("run_id and concept_name parameters are required"), nil
	}
	ref, err := s.svc.Concept(ctx, runID, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("concept lookup failed: %v", err)), nil
	}
	return jsonResult(ref)
}

func (s *Server) handleCheckpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	cycle := request.GetInt("cycle", -1)
	snap, err := s.svc.Checkpoint(ctx, runID, cycle)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("checkpoint lookup failed: %v", err)), nil
	}
	return jsonResult(snap)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
