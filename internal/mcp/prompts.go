package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a campaign landing page with the page builder"),
		mcp.WithArgument("campaign",
			mcp.ArgumentDescription("Campaign or theme of the page (e.g. Black Friday)"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("product_showcase",
		mcp.WithPromptDescription("Add a section showcasing catalog products to an existing page"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("Page to add the section to"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("category",
			mcp.ArgumentDescription("Product category to feature (optional)"),
		),
	), s.handleProductShowcasePrompt)
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	campaign := req.Params.Arguments["campaign"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a landing page for: %s", campaign),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a landing page for the "%s" campaign. Follow these steps:

1. Use create_page with a title for the campaign; it becomes the active page
2. Add a container (add_element type "container") and, inside it (parentId), a heading and a paragraph introducing the campaign
3. Use list_products and add one "product" element per featured product, with props.productId set
4. Add a "newsletter" element at the end so visitors can subscribe
5. Review the tree with get_page, fix anything with update_element or move_element (undo is available)
6. Call save_page when the page looks right

Copy is written in Brazilian Portuguese. Keep the page short and scannable.`, campaign),
				},
			},
		},
	}, nil
}

func (s *Server) handleProductShowcasePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	category := req.Params.Arguments["category"]
	filter := "featured products"
	if category != "" {
		filter = fmt.Sprintf("products of the %q category", category)
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Add a product showcase to page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add a product showcase section to page %s. Follow these steps:

1. Use set_active_page with the page id, then get_page to see the current tree
2. Use list_products to find %s
3. Add a "columns" element and put one "product" element per product inside it (parentId), with props.productId set
4. Add a heading above the columns (add it, then move_element it to the right index)
5. Call save_page

Do not remove existing elements.`, pageID, filter),
				},
			},
		},
	}, nil
}
