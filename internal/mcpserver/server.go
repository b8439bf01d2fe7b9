// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the block catalog and project views to LLM tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/studio"
)

// ContractURI is the resource holding the project layout contract.
const ContractURI = "atelier://project-layout"

// Server wraps the MCP server with project tools.
type Server struct {
	mcp *server.MCPServer
	svc *studio.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *studio.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Atelier",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_catalog",
		mcp.WithDescription("Return the merged block catalog (built-in and workspace blocks) "+
			"together with any manifest errors."),
	), s.getCatalog)

	s.mcp.AddTool(mcp.NewTool("validate_dependencies",
		mcp.WithDescription("Check every catalog block's npm dependencies for exact version pins, "+
			"allow-list membership and cross-block version conflicts."),
		mcp.WithString("allow", mcp.Description("Optional comma-separated allow-list overriding the configured one")),
	), s.validateDependencies)

	s.mcp.AddTool(mcp.NewTool("missing_blocks",
		mcp.WithDescription("List block ids placed on pages that no catalog entry provides."),
	), s.missingBlocks)

	s.mcp.AddTool(mcp.NewTool("normalize_page",
		mcp.WithDescription("Return the normalized form of a page: instance ids, default props "+
			"and resolved content references."),
		mcp.WithString("pageId", mcp.Required(), mcp.Description("Page id, e.g. home")),
	), s.normalizePage)

	s.mcp.AddTool(mcp.NewTool("normalize_theme",
		mcp.WithDescription("Return the resolved theme token map."),
	), s.normalizeTheme)

	s.mcp.AddTool(mcp.NewTool("search_blocks",
		mcp.WithDescription("Search blocks by id, name, category and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchBlocks)

	s.mcp.AddTool(mcp.NewTool("migrate_project",
		mcp.WithDescription("Migrate the open project to the current schema version. "+
			"A backup is written under backups/ before anything changes."),
	), s.migrateProject)

	s.mcp.AddTool(mcp.NewTool("get_project_contract",
		mcp.WithDescription("Returns the project layout and document contract. "+
			"Call this before editing project files directly."),
	), s.getProjectContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Project Layout Contract",
			mcp.WithResourceDescription("On-disk layout and document rules of an Atelier project."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := canonical.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCatalog(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Catalog())
}

func (s *Server) validateDependencies(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	allow := req.GetString("allow", "")
	if allow == "" {
		return jsonResult(s.svc.Dependencies())
	}
	var names []string
	for _, n := range strings.Split(allow, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return jsonResult(catalog.ValidateDependencies(s.svc.Catalog().Manifests, names))
}

func (s *Server) missingBlocks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.MissingBlocks())
}

func (s *Server) normalizePage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := req.RequireString("pageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ir, err := s.svc.PageIR(pageID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("page not found: %s", pageID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ir)
}

func (s *Server) normalizeTheme(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ThemeIR())
}

func (s *Server) searchBlocks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchBlocks(query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) migrateProject(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Migrate(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getProjectContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProjectContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     ProjectContract,
		},
	}, nil
}
