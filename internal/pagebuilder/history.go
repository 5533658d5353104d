package pagebuilder

import "storefront/internal/domain"

// DefaultHistoryLimit bounds the number of snapshots kept per editor.
const DefaultHistoryLimit = 50

// history is a linear, truncating log of whole-tree snapshots.
// entries[cursor] always equals the live tree; entries before the cursor
// are undo targets and entries after it are redo targets.
type history struct {
	entries []domain.PageContent
	cursor  int
	limit   int
}

func newHistory(initial domain.PageContent, limit int) *history {
	if limit < 2 {
		limit = DefaultHistoryLimit
	}
	return &history{
		entries: []domain.PageContent{CloneContent(initial)},
		limit:   limit,
	}
}

// record drops every redo entry and appends a snapshot of c.
func (h *history) record(c domain.PageContent) {
	h.entries = append(h.entries[:h.cursor+1], CloneContent(c))
	h.cursor = len(h.entries) - 1

	if excess := len(h.entries) - h.limit; excess > 0 {
		h.entries = append([]domain.PageContent(nil), h.entries[excess:]...)
		h.cursor -= excess
	}
}

func (h *history) canUndo() bool { return h.cursor > 0 }

func (h *history) canRedo() bool { return h.cursor < len(h.entries)-1 }

// back moves the cursor one step toward the oldest entry and returns a
// copy of the snapshot found there.
func (h *history) back() (domain.PageContent, bool) {
	if !h.canUndo() {
		return domain.PageContent{}, false
	}
	h.cursor--
	return CloneContent(h.entries[h.cursor]), true
}

// forward moves the cursor one step toward the newest entry.
func (h *history) forward() (domain.PageContent, bool) {
	if !h.canRedo() {
		return domain.PageContent{}, false
	}
	h.cursor++
	return CloneContent(h.entries[h.cursor]), true
}

func (h *history) state() domain.HistoryState {
	entries := make([]domain.PageContent, len(h.entries))
	for i, e := range h.entries {
		entries[i] = CloneContent(e)
	}
	return domain.HistoryState{Entries: entries, Cursor: h.cursor}
}
