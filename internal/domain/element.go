package domain

import "slices"

// ElementType tags the rendering variant of a page element.
type ElementType string

const (
	ElementHeading     ElementType = "heading"
	ElementParagraph   ElementType = "paragraph"
	ElementButton      ElementType = "button"
	ElementImage       ElementType = "image"
	ElementContainer   ElementType = "container"
	ElementColumns     ElementType = "columns"
	ElementCard        ElementType = "card"
	ElementList        ElementType = "list"
	ElementSpacer      ElementType = "spacer"
	ElementDivider     ElementType = "divider"
	ElementTestimonial ElementType = "testimonial"
	ElementNewsletter  ElementType = "newsletter"
	ElementProduct     ElementType = "product"
)

// ElementTypes lists the known element variants in palette order.
var ElementTypes = []ElementType{
	ElementHeading,
	ElementParagraph,
	ElementButton,
	ElementImage,
	ElementContainer,
	ElementColumns,
	ElementCard,
	ElementList,
	ElementSpacer,
	ElementDivider,
	ElementTestimonial,
	ElementNewsletter,
	ElementProduct,
}

// Valid reports whether t is one of the known element variants.
func (t ElementType) Valid() bool {
	return slices.Contains(ElementTypes, t)
}

// IsContainer reports whether elements of this type hold children.
func (t ElementType) IsContainer() bool {
	switch t {
	case ElementContainer, ElementColumns, ElementCard:
		return true
	}
	return false
}

// Props is the free-form configuration bag of an element.
type Props map[string]any

// PageElement is one node of a page's content tree.
type PageElement struct {
	ID       string        `json:"id" yaml:"id"`
	Type     ElementType   `json:"type" yaml:"type"`
	Props    Props         `json:"props" yaml:"props"`
	Children []PageElement `json:"children,omitempty" yaml:"children,omitempty"`
	ParentID string        `json:"parentId,omitempty" yaml:"-"` // derived from tree position
}

// PageSettings holds page-level metadata.
type PageSettings struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Theme       string `json:"theme" yaml:"theme"`
	CustomCSS   string `json:"customCss,omitempty" yaml:"customCss,omitempty"`
}

// PageContent is the full editable content of a page.
type PageContent struct {
	Elements []PageElement `json:"elements" yaml:"elements"`
	Settings PageSettings  `json:"settings" yaml:"settings"`
}

const (
	DefaultPageTitle       = "Nova Página"
	DefaultPageDescription = "Descrição da página"
	DefaultPageTheme       = "light"
)

// DefaultSettings returns the settings of a brand-new page.
func DefaultSettings() PageSettings {
	return PageSettings{
		Title:       DefaultPageTitle,
		Description: DefaultPageDescription,
		Theme:       DefaultPageTheme,
	}
}

// NewPageContent returns an empty page with default settings.
func NewPageContent() PageContent {
	return PageContent{
		Elements: []PageElement{},
		Settings: DefaultSettings(),
	}
}
