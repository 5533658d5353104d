package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"storefront/internal/domain"
)

func (s *Server) registerCatalogTools() {
	// ── list_products ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_products",
		mcp.WithDescription("List catalog products, to reference them from product elements (props.productId)"),
		mcp.WithString("category", mcp.Description("Filter by category (optional)")),
		mcp.WithBoolean("featuredOnly", mcp.Description("Only featured products (optional)")),
		mcp.WithBoolean("includeInactive", mcp.Description("Include inactive products (optional)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListProducts)

	// ── delete_product (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_product",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a product and its click history. Requires user approval."),
		mcp.WithString("productId", mcp.Description("Product ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteProduct)

	// ── upload_image ───────────────────────────────────
	if s.uploads != nil {
		s.mcp.AddTool(mcp.NewTool("upload_image",
			mcp.WithDescription("Store a base64 image (png, jpeg, gif or webp) and return its URL for image elements"),
			mcp.WithString("data", mcp.Description("Base64 payload or data: URL"), mcp.Required()),
		), s.handleUploadImage)
	}
}

type productSummary struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
	Category   string `json:"category"`
	Featured   bool   `json:"featured"`
	Active     bool   `json:"active"`
	ImageURL   string `json:"imageUrl"`
}

func (s *Server) handleListProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := domain.ProductFilter{
		Category:     req.GetString("category", ""),
		FeaturedOnly: req.GetBool("featuredOnly", false),
	}

	var (
		products []domain.Product
		err      error
	)
	if req.GetBool("includeInactive", false) {
		products, err = s.catalog.ListAll(ctx)
	} else {
		products, _, err = s.catalog.ListPublic(ctx, f)
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	summaries := []productSummary{}
	for _, p := range products {
		if !f.Match(p) {
			continue
		}
		summaries = append(summaries, productSummary{
			ID:         p.ID,
			Slug:       p.Slug,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Currency:   p.Currency,
			Category:   p.Category,
			Featured:   p.Featured,
			Active:     p.Active,
			ImageURL:   p.ImageURL,
		})
	}
	return jsonResult(summaries)
}

func (s *Server) handleDeleteProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID := req.GetString("productId", "")
	if productID == "" {
		return nil, fmt.Errorf("productId is required")
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return toolError(err)
	}

	approved, err := s.approval.Request(ctx, "delete_product",
		fmt.Sprintf("Delete product %q", p.Name),
		fmt.Sprintf(`{"productId":%q}`, p.ID),
	)
	if err != nil || !approved {
		return textResult(fmt.Sprintf("Product %s was not deleted: %v", productID, err)), nil
	}

	if err := s.catalog.DeleteProduct(ctx, productID); err != nil {
		return toolError(err)
	}
	return textResult(fmt.Sprintf("Product %s deleted", productID)), nil
}

func (s *Server) handleUploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := req.GetString("data", "")
	if data == "" {
		return nil, fmt.Errorf("data is required")
	}
	up, err := s.uploads.SaveDataURL(data)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(up)
}
