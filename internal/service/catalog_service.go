package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/fallback"
	"storefront/internal/feed"
)

// ─────────────────────────────────────────────────────────────
// Catalog Service: products and affiliate click tracking
// ─────────────────────────────────────────────────────────────

// CatalogService manages products and records affiliate clicks.
type CatalogService struct {
	products domain.ProductStore
	clicks   domain.ClickStore
	fallback *fallback.Source
	emitter  EventEmitter
	log      *zap.Logger
}

func NewCatalogService(products domain.ProductStore, clicks domain.ClickStore, fb *fallback.Source, emitter EventEmitter, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{products: products, clicks: clicks, fallback: fb, emitter: emitter, log: log}
}

// ProductInput holds the editable fields of a product.
type ProductInput struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"priceCents"`
	Currency     string `json:"currency"`
	ImageURL     string `json:"imageUrl"`
	AffiliateURL string `json:"affiliateUrl"`
	Category     string `json:"category"`
	Featured     bool   `json:"featured"`
	Active       bool   `json:"active"`
	SortOrder    int    `json:"sortOrder"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if !validSlug(in.Slug) {
		return fmt.Errorf("invalid slug %q: %w", in.Slug, domain.ErrInvalidInput)
	}
	if !isHTTPURL(in.AffiliateURL) {
		return fmt.Errorf("affiliateUrl must be an absolute http(s) URL: %w", domain.ErrInvalidInput)
	}
	if in.PriceCents < 0 {
		return fmt.Errorf("priceCents must not be negative: %w", domain.ErrInvalidInput)
	}
	if in.Currency == "" {
		in.Currency = "BRL"
	}
	if len(in.Currency) != 3 {
		return fmt.Errorf("invalid currency %q: %w", in.Currency, domain.ErrInvalidInput)
	}
	return nil
}

func (in ProductInput) apply(p *domain.Product) {
	p.Slug = in.Slug
	p.Name = in.Name
	p.Description = in.Description
	p.PriceCents = in.PriceCents
	p.Currency = in.Currency
	p.ImageURL = in.ImageURL
	p.AffiliateURL = in.AffiliateURL
	p.Category = in.Category
	p.Featured = in.Featured
	p.Active = in.Active
	p.SortOrder = in.SortOrder
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ── Public reads ───────────────────────────────────────────

// ListPublic returns active products. On store failure the fallback
// catalog is served and fromFallback is true.
func (s *CatalogService) ListPublic(ctx context.Context, f domain.ProductFilter) ([]domain.Product, bool, error) {
	f.ActiveOnly = true
	products, err := s.products.ListProducts(ctx, f)
	if err == nil {
		if products == nil {
			products = []domain.Product{}
		}
		return products, false, nil
	}
	if s.fallback == nil {
		return nil, false, fmt.Errorf("list products: %w", err)
	}
	s.log.Warn("product store unavailable, serving fallback", zap.Error(err))
	return s.fallback.Data().ListProducts(f), true, nil
}

// PublicProduct returns an active product by slug, from the fallback
// catalog when the store fails.
func (s *CatalogService) PublicProduct(ctx context.Context, slug string) (*domain.Product, bool, error) {
	p, err := s.products.GetProductBySlug(ctx, slug)
	if err == nil {
		if !p.Active {
			return nil, false, fmt.Errorf("product %s: %w", slug, domain.ErrNotFound)
		}
		return p, false, nil
	}
	if errors.Is(err, domain.ErrNotFound) || s.fallback == nil {
		return nil, false, err
	}
	s.log.Warn("product store unavailable, serving fallback", zap.String("slug", slug), zap.Error(err))
	if fp, ok := s.fallback.Data().ProductBySlug(slug); ok {
		return &fp, true, nil
	}
	return nil, true, fmt.Errorf("product %s: %w", slug, domain.ErrNotFound)
}

// ── Admin CRUD ─────────────────────────────────────────────

// ListAll returns every product, active or not.
func (s *CatalogService) ListAll(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := &domain.Product{ID: uuid.NewString()}
	in.apply(p)
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.emitter.Emit(ctx, EventCatalogChanged, map[string]string{"productId": p.ID})
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.emitter.Emit(ctx, EventCatalogChanged, map[string]string{"productId": p.ID})
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventCatalogChanged, map[string]string{"productId": id})
	return nil
}

// ── Feed import ────────────────────────────────────────────

// ImportItem creates or updates the product with the item's slug (derived
// from the name when the feed has none). Feeds never touch the sort order,
// and only change the featured flag when they carry one.
func (s *CatalogService) ImportItem(ctx context.Context, it feed.Item) (bool, error) {
	in := ProductInput{
		Slug:         it.Slug,
		Name:         it.Name,
		Description:  it.Description,
		PriceCents:   it.PriceCents,
		Currency:     it.Currency,
		ImageURL:     it.ImageURL,
		AffiliateURL: it.AffiliateURL,
		Category:     it.Category,
		Active:       it.Active,
	}
	if in.Slug == "" {
		in.Slug = it.Name
	}
	in.Slug = Slugify(in.Slug)

	existing, err := s.products.GetProductBySlug(ctx, in.Slug)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if it.Featured != nil {
			in.Featured = *it.Featured
		}
		_, err := s.CreateProduct(ctx, in)
		return err == nil, err
	case err != nil:
		return false, fmt.Errorf("find product %s: %w", in.Slug, err)
	}

	in.Featured = existing.Featured
	if it.Featured != nil {
		in.Featured = *it.Featured
	}
	in.SortOrder = existing.SortOrder
	_, err = s.UpdateProduct(ctx, existing.ID, in)
	return false, err
}

// ── Click tracking ─────────────────────────────────────────

// ClickInput identifies the clicked product by ID or by Slug.
type ClickInput struct {
	ProductID string
	Slug      string
	Referrer  string
	UserAgent string
}

// TrackClick resolves the affiliate URL of an active product and records
// the click. A failed recording is logged; the visitor still gets the URL.
func (s *CatalogService) TrackClick(ctx context.Context, in ClickInput) (string, error) {
	p, err := s.resolveForClick(ctx, in)
	if err != nil {
		return "", err
	}
	c := &domain.Click{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Referrer:  truncate(in.Referrer, 512),
		UserAgent: truncate(in.UserAgent, 512),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.clicks.RecordClick(ctx, c); err != nil {
		s.log.Warn("record click", zap.String("product", p.ID), zap.Error(err))
	}
	return p.AffiliateURL, nil
}

func (s *CatalogService) resolveForClick(ctx context.Context, in ClickInput) (*domain.Product, error) {
	var (
		p   *domain.Product
		err error
	)
	if in.ProductID != "" {
		p, err = s.products.GetProduct(ctx, in.ProductID)
	} else {
		p, err = s.products.GetProductBySlug(ctx, in.Slug)
	}
	switch {
	case err == nil && p.Active:
		return p, nil
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("product: %w", domain.ErrNotFound)
	}
	if s.fallback == nil {
		return nil, err
	}
	s.log.Warn("product store unavailable, resolving click from fallback", zap.Error(err))
	var (
		fp domain.Product
		ok bool
	)
	if in.ProductID != "" {
		fp, ok = s.fallback.Data().ProductByID(in.ProductID)
	} else {
		fp, ok = s.fallback.Data().ProductBySlug(in.Slug)
	}
	if !ok {
		return nil, fmt.Errorf("product: %w", domain.ErrNotFound)
	}
	return &fp, nil
}

func (s *CatalogService) ClickStats(ctx context.Context, productID string) (*domain.ClickStats, error) {
	return s.clicks.ClickStats(ctx, productID)
}

// RollupClicks folds pending clicks into product counters.
func (s *CatalogService) RollupClicks(ctx context.Context) (int64, error) {
	n, err := s.clicks.RollupClicks(ctx)
	if err != nil {
		return 0, fmt.Errorf("rollup clicks: %w", err)
	}
	if n > 0 {
		s.log.Info("clicks rolled up", zap.Int64("clicks", n))
		s.emitter.Emit(ctx, EventCatalogChanged, map[string]int64{"rolledUp": n})
	}
	return n, nil
}

// PruneClicks deletes rolled-up raw clicks older than retention.
func (s *CatalogService) PruneClicks(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.clicks.PruneClicks(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune clicks: %w", err)
	}
	if n > 0 {
		s.log.Info("raw clicks pruned", zap.Int64("clicks", n), zap.Duration("retention", retention))
	}
	return n, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
