package app

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pagebuilder"
)

// SeedResult counts the records written by Seed.
type SeedResult struct {
	Products int `json:"products"`
	Content  int `json:"content"`
	Nav      int `json:"nav"`
	Pages    int `json:"pages"`
}

// Seed copies the fallback data into the store. Each section is only
// written when the store holds no records of that kind.
func (a *App) Seed(ctx context.Context) (*SeedResult, error) {
	data := a.fallback.Data()
	b := a.backend
	var res SeedResult

	products, err := b.Products.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		for _, p := range data.Products {
			if err := b.Products.CreateProduct(ctx, &p); err != nil {
				return nil, fmt.Errorf("seed product %s: %w", p.Slug, err)
			}
			res.Products++
		}
	}

	entries, err := b.Content.ListContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	if len(entries) == 0 {
		for _, key := range slices.Sorted(maps.Keys(data.Content)) {
			e := &domain.ContentEntry{Key: key, Value: data.Content[key]}
			if err := b.Content.UpsertContent(ctx, e); err != nil {
				return nil, fmt.Errorf("seed content %s: %w", key, err)
			}
			res.Content++
		}
	}

	links, err := b.Content.ListNavLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nav links: %w", err)
	}
	if len(links) == 0 {
		for _, l := range data.Nav {
			if err := b.Content.CreateNavLink(ctx, &l); err != nil {
				return nil, fmt.Errorf("seed nav link %s: %w", l.ID, err)
			}
			res.Nav++
		}
	}

	pages, err := b.Pages.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		for _, p := range data.Pages {
			p.Content = pagebuilder.CloneContent(p.Content)
			if err := b.Pages.CreatePage(ctx, &p); err != nil {
				return nil, fmt.Errorf("seed page %s: %w", p.Slug, err)
			}
			res.Pages++
		}
	}

	a.log.Info("seeded store",
		zap.Int("products", res.Products),
		zap.Int("content", res.Content),
		zap.Int("nav", res.Nav),
		zap.Int("pages", res.Pages),
	)
	return &res, nil
}
