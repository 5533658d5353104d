package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mapping names the feed field that holds each product attribute. Empty
// entries fall back to DefaultMapping.
type Mapping struct {
	Name        string `json:"name" mapstructure:"name"`
	Slug        string `json:"slug" mapstructure:"slug"`
	Description string `json:"description" mapstructure:"description"`
	Price       string `json:"price" mapstructure:"price"`
	Currency    string `json:"currency" mapstructure:"currency"`
	Image       string `json:"image" mapstructure:"image"`
	URL         string `json:"url" mapstructure:"url"`
	Category    string `json:"category" mapstructure:"category"`
	Featured    string `json:"featured" mapstructure:"featured"`
	Active      string `json:"active" mapstructure:"active"`
}

func DefaultMapping() Mapping {
	return Mapping{
		Name:        "name",
		Slug:        "slug",
		Description: "description",
		Price:       "price",
		Currency:    "currency",
		Image:       "image",
		URL:         "url",
		Category:    "category",
		Featured:    "featured",
		Active:      "active",
	}
}

func (m Mapping) withDefaults() Mapping {
	d := DefaultMapping()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Name, d.Name)
	fill(&m.Slug, d.Slug)
	fill(&m.Description, d.Description)
	fill(&m.Price, d.Price)
	fill(&m.Currency, d.Currency)
	fill(&m.Image, d.Image)
	fill(&m.URL, d.URL)
	fill(&m.Category, d.Category)
	fill(&m.Featured, d.Featured)
	fill(&m.Active, d.Active)
	return m
}

// Item is a product as described by a feed row.
type Item struct {
	Slug         string
	Name         string
	Description  string
	PriceCents   int64
	Currency     string
	ImageURL     string
	AffiliateURL string
	Category     string
	Featured     *bool // nil keeps the catalog's value
	Active       bool
}

// Item maps one record. Rows without a name or a link are rejected.
func (m Mapping) Item(r Record) (Item, error) {
	m = m.withDefaults()
	it := Item{
		Slug:         r.String(m.Slug),
		Name:         r.String(m.Name),
		Description:  r.String(m.Description),
		Currency:     strings.ToUpper(r.String(m.Currency)),
		ImageURL:     r.String(m.Image),
		AffiliateURL: r.String(m.URL),
		Category:     r.String(m.Category),
		Active:       true,
	}
	if it.Name == "" {
		return Item{}, fmt.Errorf("missing %q", m.Name)
	}
	if it.AffiliateURL == "" {
		return Item{}, fmt.Errorf("%s: missing %q", it.Name, m.URL)
	}
	if v, ok := r.Data[m.Price]; ok && v != nil && trimSpace(v) != "" {
		cents, err := ParsePriceCents(v)
		if err != nil {
			return Item{}, fmt.Errorf("%s: %w", it.Name, err)
		}
		it.PriceCents = cents
	}
	if b, ok := parseBool(r.Data[m.Featured]); ok {
		it.Featured = &b
	}
	if b, ok := parseBool(r.Data[m.Active]); ok {
		it.Active = b
	}
	return it, nil
}

// ParsePriceCents reads a price in major units, such as 129.9, "129,90",
// "R$ 1.299,90" or "$1,299.90", into cents.
func ParsePriceCents(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("invalid price %v", n)
		}
		return int64(math.Round(n * 100)), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("invalid price %d", n)
		}
		return int64(n) * 100, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("invalid price %d", n)
		}
		return n * 100, nil
	}

	raw := trimSpace(v)
	// Only digits and separators are kept below, so a sign would be lost.
	if strings.ContainsAny(raw, "-\u2212") {
		return 0, fmt.Errorf("invalid price %q: negative", raw)
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, fmt.Errorf("invalid price %q", raw)
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Whichever comes last is the decimal separator.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	return int64(math.Round(f * 100)), nil
}

func parseBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1", "sim":
			return true, true
		case "false", "no", "n", "0", "não", "nao":
			return false, true
		}
	}
	return false, false
}

func trimSpace(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
