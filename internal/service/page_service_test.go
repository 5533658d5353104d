package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/pagebuilder"
	"storefront/internal/service"
)

func newPageService(t *testing.T, st *stores) (*service.PageService, *service.MockEmitter) {
	t.Helper()
	em := &service.MockEmitter{}
	return service.NewPageService(st.pages, st.history, newFallback(t), em, nil, 20), em
}

func TestPageService_CreateDerivesSlug(t *testing.T) {
	ctx := context.Background()
	svc, em := newPageService(t, newStores(t))

	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Ofertas de Verão"})
	require.NoError(t, err)
	assert.Equal(t, "ofertas-de-verao", p.Slug)
	assert.Equal(t, "Ofertas de Verão", p.Content.Settings.Title)
	assert.Equal(t, domain.DefaultPageTheme, p.Content.Settings.Theme)
	assert.Equal(t, []string{service.EventPagesChanged}, em.Names())

	_, err = svc.CreatePage(ctx, service.PageInput{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreatePage(ctx, service.PageInput{Title: "X", Slug: "Not A Slug"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPageService_BuilderFlow(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	svc, _ := newPageService(t, st)

	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Home"})
	require.NoError(t, err)

	state, err := svc.Builder(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, state.Content.Elements)
	assert.False(t, state.CanUndo)

	state, err = svc.AddElement(ctx, p.ID, service.AddElementInput{
		Type:  domain.ElementHeading,
		Props: domain.Props{"text": "Bem-vindo"},
	})
	require.NoError(t, err)
	require.True(t, state.Applied)
	require.Len(t, state.Content.Elements, 1)
	headingID := state.ElementID
	assert.Equal(t, headingID, state.Content.Elements[0].ID)
	assert.Equal(t, "Bem-vindo", state.Content.Elements[0].Props["text"])
	assert.Equal(t, 2, state.Content.Elements[0].Props["level"], "defaults are merged")
	assert.True(t, state.CanUndo)
	assert.True(t, state.Dirty)

	state, err = svc.UpdateElement(ctx, p.ID, headingID, pagebuilder.ElementPatch{Props: domain.Props{"text": "Olá"}})
	require.NoError(t, err)
	assert.Equal(t, "Olá", state.Content.Elements[0].Props["text"])

	state, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bem-vindo", state.Content.Elements[0].Props["text"])
	assert.True(t, state.CanRedo)

	state, err = svc.Redo(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Olá", state.Content.Elements[0].Props["text"])

	state, err = svc.SavePage(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, state.Dirty)

	saved, err := st.pages.GetPage(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, saved.Content.Elements, 1)
	assert.Equal(t, "Olá", saved.Content.Elements[0].Props["text"])
}

func TestPageService_NestedEditing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageService(t, newStores(t))
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Nested"})
	require.NoError(t, err)

	state, err := svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementContainer})
	require.NoError(t, err)
	boxID := state.ElementID

	state, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementParagraph, ParentID: boxID})
	require.NoError(t, err)
	paraID := state.ElementID
	require.Len(t, state.Content.Elements[0].Children, 1)
	assert.Equal(t, boxID, state.Content.Elements[0].Children[0].ParentID)

	el, parentID, err := svc.FindElement(ctx, p.ID, paraID)
	require.NoError(t, err)
	assert.Equal(t, domain.ElementParagraph, el.Type)
	assert.Equal(t, boxID, parentID)

	state, err = svc.DuplicateElement(ctx, p.ID, paraID)
	require.NoError(t, err)
	require.Len(t, state.Content.Elements[0].Children, 2)
	assert.NotEqual(t, paraID, state.ElementID)

	state, err = svc.MoveElement(ctx, p.ID, paraID, service.MoveInput{Index: 0})
	require.NoError(t, err)
	require.Len(t, state.Content.Elements, 2)
	assert.Equal(t, paraID, state.Content.Elements[0].ID)
	assert.Empty(t, state.Content.Elements[0].ParentID)

	state, err = svc.RemoveElement(ctx, p.ID, boxID)
	require.NoError(t, err)
	require.Len(t, state.Content.Elements, 1)

	state, err = svc.RemoveElement(ctx, p.ID, "missing")
	require.NoError(t, err)
	assert.False(t, state.Applied)
	assert.Len(t, state.Content.Elements, 1)

	_, _, err = svc.FindElement(ctx, p.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageService(t, newStores(t))
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "V"})
	require.NoError(t, err)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: "marquee"})
	assert.ErrorIs(t, err, domain.ErrUnknownElementType)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{
		Type:     domain.ElementHeading,
		Children: []domain.PageElement{{Type: domain.ElementParagraph}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bad := domain.ElementType("blink")
	_, err = svc.UpdateElement(ctx, p.ID, "x", pagebuilder.ElementPatch{Type: &bad})
	assert.ErrorIs(t, err, domain.ErrUnknownElementType)

	_, err = svc.Builder(ctx, "no-such-page")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageService_SessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	svc, _ := newPageService(t, st)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Persist"})
	require.NoError(t, err)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementDivider})
	require.NoError(t, err)
	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementSpacer})
	require.NoError(t, err)
	_, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)

	// A new service over the same stores picks up the unsaved history.
	restarted, _ := newPageService(t, st)
	state, err := restarted.Builder(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, state.Content.Elements, 1)
	assert.Equal(t, domain.ElementDivider, state.Content.Elements[0].Type)
	assert.True(t, state.CanUndo)
	assert.True(t, state.CanRedo)

	state, err = restarted.Redo(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, state.Content.Elements, 2)
}

func TestPageService_DiscardSession(t *testing.T) {
	ctx := context.Background()
	svc, em := newPageService(t, newStores(t))
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Discard"})
	require.NoError(t, err)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementImage})
	require.NoError(t, err)
	require.NoError(t, svc.DiscardSession(ctx, p.ID))

	state, err := svc.Builder(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, state.Content.Elements)
	assert.False(t, state.CanUndo)
	assert.Contains(t, em.Names(), service.EventBuilderChanged)
}

func TestPageService_SettingsThroughHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageService(t, newStores(t))
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "S"})
	require.NoError(t, err)

	theme := "dark"
	state, err := svc.UpdateSettings(ctx, p.ID, pagebuilder.SettingsPatch{Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, "dark", state.Content.Settings.Theme)

	state, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPageTheme, state.Content.Settings.Theme)
}

func TestPageService_PublishedPage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageService(t, newStores(t))

	draft, err := svc.CreatePage(ctx, service.PageInput{Title: "Draft"})
	require.NoError(t, err)
	_, _, err = svc.PublishedPage(ctx, draft.Slug)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdatePage(ctx, draft.ID, service.PageInput{Title: "Draft", Published: true})
	require.NoError(t, err)
	p, fromFallback, err := svc.PublishedPage(ctx, "draft")
	require.NoError(t, err)
	assert.False(t, fromFallback)
	assert.Equal(t, draft.ID, p.ID)

	// The store has no home page, so the embedded one is served.
	home, fromFallback, err := svc.PublishedPage(ctx, "home")
	require.NoError(t, err)
	assert.True(t, fromFallback)
	assert.NotEmpty(t, home.Content.Elements)
}

func TestPageService_PublishedPageStoreDown(t *testing.T) {
	svc := service.NewPageService(downStore{}, nil, newFallback(t), &service.MockEmitter{}, nil, 0)
	p, fromFallback, err := svc.PublishedPage(context.Background(), "home")
	require.NoError(t, err)
	assert.True(t, fromFallback)
	assert.Equal(t, "home", p.Slug)
}

func TestPageService_DeletePage(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	svc, _ := newPageService(t, st)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Gone"})
	require.NoError(t, err)
	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementButton})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePage(ctx, p.ID))
	_, err = svc.Builder(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h, err := st.history.LoadHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, h)
}

// ─────────────────────────────────────────────────────────────
// History persistence
// ─────────────────────────────────────────────────────────────

// trackedHistory counts the writes reaching the store. When gate is set,
// RecordHistory signals entered and waits for gate to close.
type trackedHistory struct {
	domain.HistoryStore

	mu     sync.Mutex
	calls  []string
	gate   chan struct{}
	enter  chan struct{}
	signal sync.Once
}

func (h *trackedHistory) track(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
}

func (h *trackedHistory) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *trackedHistory) SaveHistory(ctx context.Context, pageID string, state domain.HistoryState) error {
	h.track("save")
	return h.HistoryStore.SaveHistory(ctx, pageID, state)
}

func (h *trackedHistory) RecordHistory(ctx context.Context, pageID string, entry domain.PageContent, dirty bool) error {
	h.track("record")
	if h.gate != nil {
		h.signal.Do(func() { close(h.enter) })
		<-h.gate
	}
	return h.HistoryStore.RecordHistory(ctx, pageID, entry, dirty)
}

func (h *trackedHistory) MoveHistoryCursor(ctx context.Context, pageID string, delta int, dirty bool) error {
	h.track("move")
	return h.HistoryStore.MoveHistoryCursor(ctx, pageID, delta, dirty)
}

func TestPageService_HistoryWritesOneChangeAtATime(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	hist := &trackedHistory{HistoryStore: st.history}
	svc := service.NewPageService(st.pages, hist, nil, &service.MockEmitter{}, nil, 20)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Inc"})
	require.NoError(t, err)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementHeading})
	require.NoError(t, err)
	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementParagraph})
	require.NoError(t, err)
	_, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.Redo(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.Redo(ctx, p.ID) // nothing to redo
	require.NoError(t, err)

	assert.Equal(t, []string{"save", "record", "move", "move"}, hist.Calls())

	stored, err := st.history.LoadHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 3)
	assert.Equal(t, 2, stored.Cursor)
	assert.True(t, stored.Dirty)
	assert.Len(t, stored.Entries[2].Elements, 2)
}

func TestPageService_UndoWithNothingToUndoChangesNothing(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	svc, em := newPageService(t, st)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Idle"})
	require.NoError(t, err)

	state, err := svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, state.Applied)
	assert.False(t, state.Dirty)
	assert.NotContains(t, em.Names(), service.EventBuilderChanged)

	stored, err := st.history.LoadHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestPageService_SavedStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	svc, _ := newPageService(t, st)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Saved"})
	require.NoError(t, err)

	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementDivider})
	require.NoError(t, err)
	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementSpacer})
	require.NoError(t, err)
	_, err = svc.SavePage(ctx, p.ID)
	require.NoError(t, err)

	restarted, _ := newPageService(t, st)
	state, err := restarted.Builder(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, state.Dirty, "a saved session reopens clean")
	assert.True(t, state.CanUndo)

	state, err = restarted.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, state.Dirty)
}

func TestPageService_DiscardWaitsForRunningEdit(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	hist := &trackedHistory{HistoryStore: st.history}
	svc := service.NewPageService(st.pages, hist, nil, &service.MockEmitter{}, nil, 20)
	p, err := svc.CreatePage(ctx, service.PageInput{Title: "Race"})
	require.NoError(t, err)
	_, err = svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementHeading})
	require.NoError(t, err)

	hist.gate = make(chan struct{})
	hist.enter = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementParagraph})
		assert.NoError(t, err)
	}()
	<-hist.enter // the add is writing its history entry

	discarded := make(chan struct{})
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.DiscardSession(ctx, p.ID))
		close(discarded)
	}()
	select {
	case <-discarded:
		t.Fatal("discard finished while an edit was still writing")
	case <-time.After(50 * time.Millisecond):
	}
	close(hist.gate)
	wg.Wait()

	stored, err := st.history.LoadHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "the discard clears what the edit wrote")

	state, err := svc.Builder(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, state.Content.Elements)
	assert.False(t, state.CanUndo)
}
