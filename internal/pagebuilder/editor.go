// Package pagebuilder holds the editable element tree of a page and its
// undo/redo history.
//
// An Editor owns one PageContent. Every editing operation computes a new
// tree from the current one, records it in a linear history buffer and
// makes it live. Operations that reference an id missing from the tree
// leave the tree unchanged and report applied=false; they never fail.
//
// An Editor is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
package pagebuilder

import (
	"github.com/google/uuid"

	"storefront/internal/domain"
)

// ElementPatch is a partial update for UpdateElement. Props are merged
// key by key over the existing props; Type and Children replace the
// existing values when set.
type ElementPatch struct {
	Type     *domain.ElementType   `json:"type,omitempty"`
	Props    domain.Props          `json:"props,omitempty"`
	Children *[]domain.PageElement `json:"children,omitempty"`
}

// SettingsPatch is a partial update of page settings.
type SettingsPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
	CustomCSS   *string `json:"customCss,omitempty"`
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDGenerator replaces the uuid-based id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Editor) { e.newID = gen }
}

// WithHistoryLimit bounds the number of snapshots kept.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.limit = n }
}

// Editor is the element tree store of a single page editing session.
type Editor struct {
	content domain.PageContent
	hist    *history
	newID   func() string
	limit   int
}

// NewEditor creates an editor over a copy of initial. A nil initial
// starts an empty page with default settings.
func NewEditor(initial *domain.PageContent, opts ...Option) *Editor {
	e := &Editor{newID: uuid.NewString, limit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(e)
	}
	if initial != nil {
		e.content = CloneContent(*initial)
	} else {
		e.content = domain.NewPageContent()
	}
	syncParents(e.content.Elements, "")
	e.hist = newHistory(e.content, e.limit)
	return e
}

// RestoreEditor recreates an editor from a persisted history. The live
// tree is the entry under the cursor. An empty state behaves like
// NewEditor(nil).
func RestoreEditor(state domain.HistoryState, opts ...Option) *Editor {
	if len(state.Entries) == 0 {
		return NewEditor(nil, opts...)
	}
	cursor := state.Cursor
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(state.Entries) {
		cursor = len(state.Entries) - 1
	}

	e := NewEditor(&state.Entries[cursor], opts...)
	entries := make([]domain.PageContent, len(state.Entries))
	for i, c := range state.Entries {
		entries[i] = CloneContent(c)
		syncParents(entries[i].Elements, "")
	}
	e.hist.entries = entries
	e.hist.cursor = cursor
	if excess := len(entries) - e.hist.limit; excess > 0 {
		drop := min(excess, cursor)
		e.hist.entries = entries[drop:]
		e.hist.cursor -= drop
	}
	return e
}

// Content returns a deep copy of the live tree.
func (e *Editor) Content() domain.PageContent {
	return CloneContent(e.content)
}

// Snapshot exports the history buffer for persistence.
func (e *Editor) Snapshot() domain.HistoryState {
	return e.hist.state()
}

// Find returns a copy of the element with the given id and the id of its
// parent ("" when it is a root element).
func (e *Editor) Find(id string) (domain.PageElement, string, bool) {
	el, parentID, ok := find(e.content.Elements, id, "")
	if !ok {
		return domain.PageElement{}, "", false
	}
	return CloneElement(*el), parentID, true
}

// Len returns the number of elements in the tree.
func (e *Editor) Len() int {
	return countElements(e.content.Elements)
}

// AddElement gives el and all of its descendants fresh ids and appends it
// to the children of parentID, or to the root list when parentID is empty.
// It returns the new element's id.
func (e *Editor) AddElement(el domain.PageElement, parentID string) (string, bool) {
	taken := e.idIndex("")
	el = CloneElement(el)
	e.rekey(&el, taken, true)

	var (
		next    []domain.PageElement
		applied bool
	)
	if parentID == "" {
		next = insertAt(e.content.Elements, len(e.content.Elements), el)
		applied = true
	} else {
		next, applied = locateAndTransform(e.content.Elements, byID(parentID), func(p domain.PageElement) []domain.PageElement {
			p.Children = insertAt(p.Children, len(p.Children), el)
			return []domain.PageElement{p}
		})
	}

	e.commit(next)
	if !applied {
		return "", false
	}
	return el.ID, true
}

// RemoveElement deletes the element with the given id, at any depth,
// together with its subtree.
func (e *Editor) RemoveElement(id string) bool {
	next, applied := locateAndTransform(e.content.Elements, byID(id), func(domain.PageElement) []domain.PageElement {
		return nil
	})
	e.commit(next)
	return applied
}

// UpdateElement merges patch into the element with the given id.
func (e *Editor) UpdateElement(id string, patch ElementPatch) bool {
	taken := e.idIndex(id)

	next, applied := locateAndTransform(e.content.Elements, byID(id), func(el domain.PageElement) []domain.PageElement {
		if patch.Props != nil {
			merged := make(domain.Props, len(el.Props)+len(patch.Props))
			for k, v := range el.Props {
				merged[k] = v
			}
			for k, v := range patch.Props {
				merged[k] = cloneValue(v)
			}
			el.Props = merged
		}
		if patch.Type != nil {
			el.Type = *patch.Type
		}
		if patch.Children != nil {
			children := cloneElements(*patch.Children)
			for i := range children {
				e.rekey(&children[i], taken, false)
			}
			el.Children = children
		}
		return []domain.PageElement{el}
	})
	e.commit(next)
	return applied
}

// DuplicateElement inserts a deep copy of the element, with fresh ids for
// the copy and all of its descendants, right after the original.
// It returns the copy's id.
func (e *Editor) DuplicateElement(id string) (string, bool) {
	taken := e.idIndex("")
	var copyID string
	next, applied := locateAndTransform(e.content.Elements, byID(id), func(el domain.PageElement) []domain.PageElement {
		dup := CloneElement(el)
		e.rekey(&dup, taken, true)
		copyID = dup.ID
		return []domain.PageElement{el, dup}
	})
	e.commit(next)
	return copyID, applied
}

// MoveElement detaches the element and reinserts it at newIndex in the
// children of parentID, or in the root list when parentID is empty.
// newIndex is clamped to the bounds of the target list after detaching.
// Moving an element into itself or its own subtree is a no-op.
func (e *Editor) MoveElement(id string, newIndex int, parentID string) bool {
	next, applied := e.move(id, newIndex, parentID)
	e.commit(next)
	return applied
}

func (e *Editor) move(id string, newIndex int, parentID string) ([]domain.PageElement, bool) {
	src, _, ok := find(e.content.Elements, id, "")
	if !ok {
		return e.content.Elements, false
	}
	moving := *src
	if parentID != "" {
		if contains(moving, parentID) {
			return e.content.Elements, false
		}
		if _, _, ok := find(e.content.Elements, parentID, ""); !ok {
			return e.content.Elements, false
		}
	}

	detached, _ := locateAndTransform(e.content.Elements, byID(id), func(domain.PageElement) []domain.PageElement {
		return nil
	})
	if parentID == "" {
		return insertAt(detached, newIndex, moving), true
	}
	return locateAndTransform(detached, byID(parentID), func(p domain.PageElement) []domain.PageElement {
		p.Children = insertAt(p.Children, newIndex, moving)
		return []domain.PageElement{p}
	})
}

// UpdateSettings applies patch to the page settings.
func (e *Editor) UpdateSettings(patch SettingsPatch) {
	s := e.content.Settings
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.Theme != nil {
		s.Theme = *patch.Theme
	}
	if patch.CustomCSS != nil {
		s.CustomCSS = *patch.CustomCSS
	}
	e.content.Settings = s
	e.commit(e.content.Elements)
}

// Undo restores the previous snapshot. It reports false at the oldest one.
func (e *Editor) Undo() bool {
	c, ok := e.hist.back()
	if ok {
		e.content = c
	}
	return ok
}

// Redo restores the next snapshot. It reports false at the newest one.
func (e *Editor) Redo() bool {
	c, ok := e.hist.forward()
	if ok {
		e.content = c
	}
	return ok
}

func (e *Editor) CanUndo() bool { return e.hist.canUndo() }

func (e *Editor) CanRedo() bool { return e.hist.canRedo() }

// commit makes elements the live tree and records it in history.
// No-op edits are recorded too, so that undo after any operation returns
// to the tree the operation started from.
func (e *Editor) commit(elements []domain.PageElement) {
	if elements == nil {
		elements = []domain.PageElement{}
	}
	e.content.Elements = elements
	syncParents(e.content.Elements, "")
	e.hist.record(e.content)
}

// idIndex answers "is this id in use" for the live tree. Descendants of
// the element skipChildrenOf are ignored, the element itself is not.
func (e *Editor) idIndex(skipChildrenOf string) *idSet {
	return &idSet{tree: e.content.Elements, skip: skipChildrenOf, local: make(map[string]bool)}
}

// freshID returns an id not yet in use and marks it used.
func (e *Editor) freshID(taken *idSet) string {
	for {
		id := e.newID()
		if id != "" && !taken.has(id) {
			taken.add(id)
			return id
		}
	}
}

// rekey assigns ids to el and its descendants. With force every id is
// replaced; otherwise only empty or already used ids are.
func (e *Editor) rekey(el *domain.PageElement, taken *idSet, force bool) {
	if force || el.ID == "" || taken.has(el.ID) {
		el.ID = e.freshID(taken)
	} else {
		taken.add(el.ID)
	}
	for i := range el.Children {
		e.rekey(&el.Children[i], taken, force)
	}
}
