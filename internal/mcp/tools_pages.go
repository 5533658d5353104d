package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"storefront/internal/service"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages of the storefront with their slug and published state"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListPages)

	// ── get_page ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Get the page-builder state of a page: element tree, settings and undo/redo availability"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetPage)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new, unpublished page and make it the active page"),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
		mcp.WithString("slug", mcp.Description("URL slug (optional, derived from the title)")),
	), s.handleCreatePage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)

	// ── save_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Persist the current element tree of the page. Undo history is kept."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSavePage)

	// ── discard_changes ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("discard_changes",
		mcp.WithDescription("Drop unsaved edits and the undo history, returning to the last saved content"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleDiscardChanges)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page and its history. Requires user approval."),
		mcp.WithString("pageId", mcp.Description("Page ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)
}

type pageSummary struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
	Elements  int    `json:"elements"`
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]pageSummary, len(pages))
	for i, p := range pages {
		summaries[i] = pageSummary{
			ID:        p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			Published: p.Published,
			Elements:  len(p.Content.Elements),
		}
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	state, err := s.pages.Builder(ctx, pageID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(state)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	page, err := s.pages.CreatePage(ctx, service.PageInput{Title: title, Slug: req.GetString("slug", "")})
	if err != nil {
		return toolError(err)
	}
	s.setActivePage(page.ID)
	return jsonResult(page)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if _, err := s.pages.GetPage(ctx, pageID); err != nil {
		return toolError(err)
	}
	s.setActivePage(pageID)
	return textResult(fmt.Sprintf("Active page set to %s", pageID)), nil
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	state, err := s.pages.SavePage(ctx, pageID)
	if err != nil {
		return toolError(err)
	}
	return textResult(fmt.Sprintf("Page %s saved (%d root elements)", pageID, len(state.Content.Elements))), nil
}

func (s *Server) handleDiscardChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	if err := s.pages.DiscardSession(ctx, pageID); err != nil {
		return toolError(err)
	}
	return textResult(fmt.Sprintf("Unsaved changes of page %s discarded", pageID)), nil
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	page, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return toolError(err)
	}

	approved, err := s.approval.Request(ctx, "delete_page",
		fmt.Sprintf("Delete page %q (/%s)", page.Title, page.Slug),
		fmt.Sprintf(`{"pageId":%q}`, page.ID),
	)
	if err != nil || !approved {
		return textResult(fmt.Sprintf("Page %s was not deleted: %v", pageID, err)), nil
	}

	if err := s.pages.DeletePage(ctx, pageID); err != nil {
		return toolError(err)
	}
	s.mu.Lock()
	if s.activePageID == pageID {
		s.activePageID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Page %s deleted", pageID)), nil
}
