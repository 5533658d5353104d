package domain

import (
	"context"
	"time"
)

// Product is an item in the affiliate catalog.
type Product struct {
	ID           string    `json:"id" yaml:"id"`
	Slug         string    `json:"slug" yaml:"slug"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description" yaml:"description"`
	PriceCents   int64     `json:"priceCents" yaml:"priceCents"`
	Currency     string    `json:"currency" yaml:"currency"`
	ImageURL     string    `json:"imageUrl" yaml:"imageUrl"`
	AffiliateURL string    `json:"affiliateUrl" yaml:"affiliateUrl"`
	Category     string    `json:"category" yaml:"category"`
	Featured     bool      `json:"featured" yaml:"featured"`
	Active       bool      `json:"active" yaml:"active"`
	SortOrder    int       `json:"sortOrder" yaml:"sortOrder"`
	ClickCount   int64     `json:"clickCount" yaml:"-"`
	CreatedAt    time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"-"`
}

// ProductFilter narrows ListProducts. Zero values match everything.
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
	ActiveOnly   bool
}

// Match reports whether p passes the filter.
func (f ProductFilter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.FeaturedOnly && !p.Featured {
		return false
	}
	if f.ActiveOnly && !p.Active {
		return false
	}
	return true
}

// Click is a single tracked visit to a product's affiliate link.
type Click struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	RolledUp  bool      `json:"rolledUp"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClickStats summarizes clicks for one product.
type ClickStats struct {
	ProductID string `json:"productId"`
	Total     int64  `json:"total"`   // rolled-up count plus pending clicks
	Pending   int64  `json:"pending"` // clicks not yet folded into the product
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type ClickStore interface {
	RecordClick(ctx context.Context, c *Click) error
	ClickStats(ctx context.Context, productID string) (*ClickStats, error)
	// RollupClicks folds pending clicks into product click counts and
	// returns how many clicks were folded.
	RollupClicks(ctx context.Context) (int64, error)
	// PruneClicks deletes rolled-up clicks older than before.
	PruneClicks(ctx context.Context, before time.Time) (int64, error)
}
