package pagebuilder

import "storefront/internal/domain"

// matchFunc selects an element during a tree walk.
type matchFunc func(el *domain.PageElement) bool

// transformFunc returns the elements that replace a matched element in its
// sibling list: none removes it, one replaces it, more insert after it.
type transformFunc func(el domain.PageElement) []domain.PageElement

func byID(id string) matchFunc {
	return func(el *domain.PageElement) bool { return el.ID == id }
}

// locateAndTransform walks list depth-first and applies fn to the first
// element accepted by match. Slices on the path to the match are rebuilt,
// untouched subtrees are shared with the input. The input is never modified.
func locateAndTransform(list []domain.PageElement, match matchFunc, fn transformFunc) ([]domain.PageElement, bool) {
	for i := range list {
		if match(&list[i]) {
			repl := fn(list[i])
			out := make([]domain.PageElement, 0, len(list)-1+len(repl))
			out = append(out, list[:i]...)
			out = append(out, repl...)
			out = append(out, list[i+1:]...)
			return out, true
		}
		if len(list[i].Children) == 0 {
			continue
		}
		children, ok := locateAndTransform(list[i].Children, match, fn)
		if ok {
			out := make([]domain.PageElement, len(list))
			copy(out, list)
			out[i].Children = children
			return out, true
		}
	}
	return list, false
}

// find returns the first element with the given id and the id of its
// parent ("" for roots).
func find(list []domain.PageElement, id, parentID string) (*domain.PageElement, string, bool) {
	for i := range list {
		if list[i].ID == id {
			return &list[i], parentID, true
		}
		if el, pid, ok := find(list[i].Children, id, list[i].ID); ok {
			return el, pid, true
		}
	}
	return nil, "", false
}

// contains reports whether id is el itself or one of its descendants.
func contains(el domain.PageElement, id string) bool {
	if el.ID == id {
		return true
	}
	for _, c := range el.Children {
		if contains(c, id) {
			return true
		}
	}
	return false
}

// syncParents rewrites the denormalized ParentID of every element so it
// agrees with the element's position in the tree.
func syncParents(list []domain.PageElement, parentID string) {
	for i := range list {
		list[i].ParentID = parentID
		syncParents(list[i].Children, list[i].ID)
	}
}

// insertAt returns a new slice with el placed at index, clamped to the
// bounds of list.
func insertAt(list []domain.PageElement, index int, el domain.PageElement) []domain.PageElement {
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	out := make([]domain.PageElement, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, el)
	out = append(out, list[index:]...)
	return out
}

// countElements returns the number of elements in the tree.
func countElements(list []domain.PageElement) int {
	n := len(list)
	for _, el := range list {
		n += countElements(el.Children)
	}
	return n
}

// idSet tracks ids in use: those in a tree plus ids handed out during the
// current operation. It walks the tree on lookup instead of indexing it.
type idSet struct {
	tree  []domain.PageElement
	skip  string
	local map[string]bool
}

func (s *idSet) has(id string) bool {
	return s.local[id] || treeHas(s.tree, id, s.skip)
}

func (s *idSet) add(id string) { s.local[id] = true }

func treeHas(list []domain.PageElement, id, skipChildrenOf string) bool {
	for _, el := range list {
		if el.ID == id {
			return true
		}
		if el.ID == skipChildrenOf && skipChildrenOf != "" {
			continue
		}
		if treeHas(el.Children, id, skipChildrenOf) {
			return true
		}
	}
	return false
}
