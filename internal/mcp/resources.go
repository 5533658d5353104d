package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pagesURI       = "storefront://pages"
	pageURIPrefix  = "storefront://page/"
	pageURISuffix  = "/content"
	pageContentURI = pageURIPrefix + "{pageId}" + pageURISuffix
)

func (s *Server) registerResources() {
	// ── storefront://pages ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── storefront://page/{pageId}/content ─────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageContentURI,
			"Live Content of a Page",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handlePageContentResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
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

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      pagesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handlePageContentResource returns the session's live tree, which may
// hold unsaved edits.
func (s *Server) handlePageContentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	state, err := s.pages.Builder(ctx, pageID)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(state.Content, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page ID from "storefront://page/{id}/content".
func extractPageIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, pageURISuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
