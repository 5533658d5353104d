package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/service"
)

// Server is the MCP server of the storefront.
// It exposes page-builder tools, page resources and prompts so agents can
// edit pages the way the administrator does.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	log      *zap.Logger

	pages   *service.PageService
	catalog *service.CatalogService
	uploads *service.UploadService

	mu           sync.Mutex
	activePageID string
}

// Deps holds everything the MCP server is built from.
type Deps struct {
	Emitter service.EventEmitter
	Pages   *service.PageService
	Catalog *service.CatalogService
	Uploads *service.UploadService
	Logger  *zap.Logger

	// Approvals, when set, routes destructive-tool approvals through the
	// database so a server in another process can resolve them.
	Approvals domain.ApprovalStore
}

// New creates the MCP server with all tools, resources and prompts.
func New(ctx context.Context, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	approval := NewApprovalQueue(ctx, deps.Emitter)
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		log:      log,
		pages:    deps.Pages,
		catalog:  deps.Catalog,
		uploads:  deps.Uploads,
	}

	s.mcp = server.NewMCPServer(
		"storefront-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerBuilderTools()
	s.registerCatalogTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio runs the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Handler serves MCP over streamable HTTP, for mounting in the admin API.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// Approvals is the queue destructive tools wait on.
func (s *Server) Approvals() *ApprovalQueue {
	return s.approval
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// toolError turns a service error into a tool error result the agent can
// read and correct. Unexpected failures stay protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownElementType),
		errors.Is(err, domain.ErrInvalidUpload):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func (s *Server) setActivePage(id string) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

// resolvePageID returns the pageId argument or falls back to the active page.
func (s *Server) resolvePageID(req mcp.CallToolRequest) (string, error) {
	if pid := req.GetString("pageId", ""); pid != "" {
		return pid, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != "" {
		return s.activePageID, nil
	}
	return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}
