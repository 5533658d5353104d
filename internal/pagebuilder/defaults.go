package pagebuilder

import (
	"fmt"

	"storefront/internal/domain"
)

// defaultProps are the props a freshly added element starts with.
var defaultProps = map[domain.ElementType]domain.Props{
	domain.ElementHeading:     {"text": "Novo título", "level": 2, "align": "left"},
	domain.ElementParagraph:   {"text": "Escreva seu texto aqui.", "align": "left"},
	domain.ElementButton:      {"text": "Clique aqui", "url": "#", "variant": "primary", "align": "left"},
	domain.ElementImage:       {"src": "", "alt": "", "width": "100%"},
	domain.ElementContainer:   {"padding": 16, "background": "transparent"},
	domain.ElementColumns:     {"columns": 2, "gap": 16},
	domain.ElementCard:        {"title": "Título do card", "text": "", "shadow": true},
	domain.ElementList:        {"items": []any{"Item 1", "Item 2", "Item 3"}, "ordered": false},
	domain.ElementSpacer:      {"height": 40},
	domain.ElementDivider:     {"color": "#e5e7eb", "thickness": 1},
	domain.ElementTestimonial: {"quote": "Produto excelente, recomendo!", "author": "Cliente satisfeito", "rating": 5},
	domain.ElementNewsletter:  {"title": "Receba nossas ofertas", "placeholder": "Seu melhor e-mail", "buttonText": "Inscrever"},
	domain.ElementProduct:     {"productId": "", "showPrice": true},
}

// DefaultProps returns a copy of the default props for t, or an empty
// bag for unknown types.
func DefaultProps(t domain.ElementType) domain.Props {
	p := cloneProps(defaultProps[t])
	if p == nil {
		p = domain.Props{}
	}
	return p
}

// NewElement builds an element of type t whose props are the variant
// defaults overlaid with props. Container variants start with an empty
// child list. The id is left empty for the editor to assign.
func NewElement(t domain.ElementType, props domain.Props) (domain.PageElement, error) {
	if !t.Valid() {
		return domain.PageElement{}, fmt.Errorf("%w: %q", domain.ErrUnknownElementType, t)
	}
	merged := DefaultProps(t)
	for k, v := range props {
		merged[k] = cloneValue(v)
	}
	el := domain.PageElement{Type: t, Props: merged}
	if t.IsContainer() {
		el.Children = []domain.PageElement{}
	}
	return el, nil
}
