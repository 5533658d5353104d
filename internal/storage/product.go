package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
)

// ProductStore implements domain.ProductStore on SQL.
type ProductStore struct {
	db *DB
}

func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, slug, name, description, price_cents, currency, image_url, affiliate_url, category, featured, active, sort_order, click_count, created_at, updated_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.AffiliateURL,
		&p.Category, &p.Featured, &p.Active, &p.SortOrder, &p.ClickCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Name, p.Description, p.PriceCents, p.Currency, p.ImageURL, p.AffiliateURL,
		p.Category, p.Featured, p.Active, p.SortOrder, p.ClickCount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *ProductStore) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := scanProduct(s.db.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug))
	if err != nil {
		return nil, notFound(err, "product", slug)
	}
	return p, nil
}

func (s *ProductStore) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.FeaturedOnly {
		where = append(where, "featured = ?")
		args = append(args, true)
	}
	if f.ActiveOnly {
		where = append(where, "active = ?")
		args = append(args, true)
	}
	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY sort_order ASC, name ASC`

	rows, err := s.db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct writes every editable field. click_count is owned by the
// click rollup and is left alone.
func (s *ProductStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.exec(ctx,
		`UPDATE products SET slug = ?, name = ?, description = ?, price_cents = ?, currency = ?, image_url = ?, affiliate_url = ?, category = ?, featured = ?, active = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Name, p.Description, p.PriceCents, p.Currency, p.ImageURL, p.AffiliateURL,
		p.Category, p.Featured, p.Active, p.SortOrder, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return affected(res, "product", p.ID)
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if err := affected(res, "product", id); err != nil {
		return err
	}
	if _, err := s.db.exec(ctx, `DELETE FROM clicks WHERE product_id = ?`, id); err != nil {
		return fmt.Errorf("delete product clicks: %w", err)
	}
	return nil
}
