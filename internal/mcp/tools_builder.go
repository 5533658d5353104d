package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"storefront/internal/domain"
	"storefront/internal/pagebuilder"
	"storefront/internal/service"
)

func elementTypeList() string {
	names := make([]string, len(domain.ElementTypes))
	for i, t := range domain.ElementTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (s *Server) registerBuilderTools() {
	types := elementTypeList()

	// ── add_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to the page. Props are merged over the type defaults. Ids are assigned by the server."),
		mcp.WithString("type",
			mcp.Description("Element type: "+types),
			mcp.Required(),
		),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("parentId", mcp.Description("Container element to append into (optional, root when omitted)")),
		mcp.WithObject("props", mcp.Description("Element properties, e.g. {\"text\": \"Ofertas\"}")),
		mcp.WithArray("children", mcp.Description("Child elements for container types: [{type, props, children}]")),
	), s.handleAddElement)

	// ── update_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Patch an element. Props are merged into the existing ones; children, when given, replace the existing children."),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("New element type (optional): "+types)),
		mcp.WithObject("props", mcp.Description("Properties to merge (optional)")),
		mcp.WithArray("children", mcp.Description("Replacement children (optional)")),
	), s.handleUpdateElement)

	// ── remove_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_element",
		mcp.WithDescription("Remove an element and its descendants. Can be undone."),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRemoveElement)

	// ── duplicate_element ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_element",
		mcp.WithDescription("Insert a copy of an element, with fresh ids, right after it"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleDuplicateElement)

	// ── move_element ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element to a position among the root elements or among a container's children"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target position, clamped to the list bounds"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Target container (optional, root when omitted)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleMoveElement)

	// ── update_settings ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_settings",
		mcp.WithDescription("Change page settings (title, description, theme, etc.). Can be undone."),
		mcp.WithObject("settings", mcp.Description("Settings to change, e.g. {\"theme\": \"dark\"}"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateSettings)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedo)
}

// builderResult reports the outcome of a builder call. A call that found
// nothing to change is reported as such, not as an error.
func builderResult(state *service.BuilderState, done string) (*mcp.CallToolResult, error) {
	if !state.Applied {
		return jsonResult(map[string]any{
			"message": "nothing changed: " + done + " did not apply (unknown id or nothing to undo/redo)",
			"state":   state,
		})
	}
	return jsonResult(state)
}

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	in := service.AddElementInput{
		Type:     domain.ElementType(req.GetString("type", "")),
		ParentID: req.GetString("parentId", ""),
	}
	if in.Type == "" {
		return nil, fmt.Errorf("type is required")
	}
	if _, err := objectArg(args, "props", &in.Props); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := objectArg(args, "children", &in.Children); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.pages.AddElement(ctx, pageID, in)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "add_element")
}

func (s *Server) handleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	elementID := req.GetString("elementId", "")
	if elementID == "" {
		return nil, fmt.Errorf("elementId is required")
	}

	var patch pagebuilder.ElementPatch
	if t := req.GetString("type", ""); t != "" {
		et := domain.ElementType(t)
		patch.Type = &et
	}
	if _, err := objectArg(args, "props", &patch.Props); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var children []domain.PageElement
	ok, err := objectArg(args, "children", &children)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ok {
		patch.Children = &children
	}

	state, err := s.pages.UpdateElement(ctx, pageID, elementID, patch)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "update_element")
}

func (s *Server) handleRemoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	elementID := req.GetString("elementId", "")
	if elementID == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	state, err := s.pages.RemoveElement(ctx, pageID, elementID)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "remove_element")
}

func (s *Server) handleDuplicateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	elementID := req.GetString("elementId", "")
	if elementID == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	state, err := s.pages.DuplicateElement(ctx, pageID, elementID)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "duplicate_element")
}

func (s *Server) handleMoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	elementID := req.GetString("elementId", "")
	if elementID == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	in := service.MoveInput{
		Index:    req.GetInt("index", 0),
		ParentID: req.GetString("parentId", ""),
	}
	state, err := s.pages.MoveElement(ctx, pageID, elementID, in)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "move_element")
}

func (s *Server) handleUpdateSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	var patch pagebuilder.SettingsPatch
	ok, err := objectArg(req.GetArguments(), "settings", &patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return nil, fmt.Errorf("settings is required")
	}
	state, err := s.pages.UpdateSettings(ctx, pageID, patch)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "update_settings")
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	state, err := s.pages.Undo(ctx, pageID)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "undo")
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	state, err := s.pages.Redo(ctx, pageID)
	if err != nil {
		return toolError(err)
	}
	return builderResult(state, "redo")
}
