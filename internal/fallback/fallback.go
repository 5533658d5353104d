// Package fallback provides the hardcoded catalog, copy and pages served
// when the store cannot be reached.
package fallback

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"storefront/internal/domain"
	"storefront/internal/pagebuilder"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Data is one complete set of fallback records.
type Data struct {
	Products []domain.Product  `yaml:"products"`
	Content  map[string]string `yaml:"content"`
	Nav      []domain.NavLink  `yaml:"nav"`
	Pages    []domain.Page     `yaml:"pages"`
}

// Parse decodes a fallback document.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse fallback data: %w", err)
	}
	d.normalize()
	return &d, nil
}

// Default returns the embedded fallback data.
func Default() *Data {
	d, err := Parse(defaultsYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// Load returns the embedded data overlaid with the file at path. A missing
// file, or an empty path, yields the embedded data alone.
func Load(path string) (*Data, error) {
	d := Default()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}
	override, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	d.overlay(override)
	return d, nil
}

// overlay replaces whole sections present in o and merges content keys.
func (d *Data) overlay(o *Data) {
	if len(o.Products) > 0 {
		d.Products = o.Products
	}
	if len(o.Nav) > 0 {
		d.Nav = o.Nav
	}
	for k, v := range o.Content {
		d.Content[k] = v
	}
	for _, p := range o.Pages {
		replaced := false
		for i := range d.Pages {
			if d.Pages[i].Slug == p.Slug {
				d.Pages[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			d.Pages = append(d.Pages, p)
		}
	}
}

func (d *Data) normalize() {
	if d.Content == nil {
		d.Content = map[string]string{}
	}
	for i := range d.Products {
		p := &d.Products[i]
		if p.ID == "" {
			p.ID = "fallback-" + p.Slug
		}
		if p.Currency == "" {
			p.Currency = "BRL"
		}
	}
	for i := range d.Pages {
		p := &d.Pages[i]
		if p.ID == "" {
			p.ID = "fallback-" + p.Slug
		}
		p.Content = pagebuilder.Normalize(p.Content)
		if p.Content.Settings == (domain.PageSettings{}) {
			p.Content.Settings = domain.DefaultSettings()
			p.Content.Settings.Title = p.Title
		}
	}
	sort.SliceStable(d.Products, func(i, j int) bool { return d.Products[i].SortOrder < d.Products[j].SortOrder })
	sort.SliceStable(d.Nav, func(i, j int) bool { return d.Nav[i].SortOrder < d.Nav[j].SortOrder })
}

// ListProducts returns the products matching f in display order.
func (d *Data) ListProducts(f domain.ProductFilter) []domain.Product {
	out := []domain.Product{}
	for _, p := range d.Products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// ProductBySlug looks up an active product.
func (d *Data) ProductBySlug(slug string) (domain.Product, bool) {
	for _, p := range d.Products {
		if p.Slug == slug && p.Active {
			return p, true
		}
	}
	return domain.Product{}, false
}

// ProductByID looks up an active product.
func (d *Data) ProductByID(id string) (domain.Product, bool) {
	for _, p := range d.Products {
		if p.ID == id && p.Active {
			return p, true
		}
	}
	return domain.Product{}, false
}

// VisibleNav returns the visible navigation links in order.
func (d *Data) VisibleNav() []domain.NavLink {
	out := []domain.NavLink{}
	for _, l := range d.Nav {
		if l.Visible {
			out = append(out, l)
		}
	}
	return out
}

// PageBySlug looks up a published page. The content is a private copy.
func (d *Data) PageBySlug(slug string) (domain.Page, bool) {
	for _, p := range d.Pages {
		if p.Slug == slug && p.Published {
			p.Content = pagebuilder.CloneContent(p.Content)
			return p, true
		}
	}
	return domain.Page{}, false
}

// ContentMap returns a copy of the copy entries.
func (d *Data) ContentMap() map[string]string {
	out := make(map[string]string, len(d.Content))
	for k, v := range d.Content {
		out[k] = v
	}
	return out
}
