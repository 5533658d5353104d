package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/fallback"
	"storefront/internal/pagebuilder"
)

// ─────────────────────────────────────────────────────────────
// Page Service: pages and their page-builder sessions
// ─────────────────────────────────────────────────────────────

// BuilderState is what every page-builder call returns.
type BuilderState struct {
	PageID    string             `json:"pageId"`
	Content   domain.PageContent `json:"content"`
	CanUndo   bool               `json:"canUndo"`
	CanRedo   bool               `json:"canRedo"`
	Applied   bool               `json:"applied"`
	ElementID string             `json:"elementId,omitempty"`
	Dirty     bool               `json:"dirty"`
}

// session is the live editor of one page. The editor itself is not
// goroutine-safe, so every access goes through mu.
type session struct {
	mu     sync.Mutex
	editor *pagebuilder.Editor
	dirty  bool
	// persisted is set once the store holds the whole buffer; later
	// changes are written one entry or cursor move at a time.
	persisted bool
	// closed sessions were discarded or their page deleted. Callers that
	// were waiting on mu open a fresh session instead.
	closed bool
}

// historyOp says how an edit changed the history buffer.
type historyOp int

const (
	opRecord historyOp = iota // every edit records an entry, applied or not
	opUndo
	opRedo
)

// PageService manages pages and keeps one editing session per page.
type PageService struct {
	pages    domain.PageStore
	history  domain.HistoryStore
	fallback *fallback.Source
	emitter  EventEmitter
	log      *zap.Logger
	opts     []pagebuilder.Option

	mu       sync.Mutex
	sessions map[string]*session
}

// NewPageService creates a PageService. historyLimit bounds each page's
// undo buffer; fb may be nil.
func NewPageService(
	pages domain.PageStore,
	history domain.HistoryStore,
	fb *fallback.Source,
	emitter EventEmitter,
	log *zap.Logger,
	historyLimit int,
	opts ...pagebuilder.Option,
) *PageService {
	if log == nil {
		log = zap.NewNop()
	}
	if historyLimit > 0 {
		opts = append([]pagebuilder.Option{pagebuilder.WithHistoryLimit(historyLimit)}, opts...)
	}
	return &PageService{
		pages:    pages,
		history:  history,
		fallback: fb,
		emitter:  emitter,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// ── Page CRUD ──────────────────────────────────────────────

// PageInput holds the editable metadata of a page.
type PageInput struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Published bool   `json:"published"`
}

func (in *PageInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrInvalidInput)
	}
	if in.Slug == "" {
		in.Slug = Slugify(in.Title)
	}
	if !validSlug(in.Slug) {
		return fmt.Errorf("invalid slug %q: %w", in.Slug, domain.ErrInvalidInput)
	}
	return nil
}

func (s *PageService) ListPages(ctx context.Context) ([]domain.Page, error) {
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return pages, nil
}

func (s *PageService) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	return s.pages.GetPage(ctx, id)
}

// CreatePage creates an empty page whose settings title follows the page
// title.
func (s *PageService) CreatePage(ctx context.Context, in PageInput) (*domain.Page, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	content := domain.NewPageContent()
	content.Settings.Title = in.Title
	p := &domain.Page{
		ID:        uuid.NewString(),
		Slug:      in.Slug,
		Title:     in.Title,
		Content:   content,
		Published: in.Published,
	}
	if err := s.pages.CreatePage(ctx, p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"pageId": p.ID})
	return p, nil
}

// UpdatePage changes a page's metadata. The content is only changed by
// saving a builder session.
func (s *PageService) UpdatePage(ctx context.Context, id string, in PageInput) (*domain.Page, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Title, p.Slug, p.Published = in.Title, in.Slug, in.Published
	if err := s.pages.UpdatePage(ctx, p); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"pageId": p.ID})
	return p, nil
}

// DeletePage removes the page, its history and any open session.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return err
	}
	if err := s.closeSession(ctx, id); err != nil {
		s.log.Warn("clear history of deleted page", zap.String("page", id), zap.Error(err))
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"pageId": id})
	return nil
}

// PublishedPage returns a published page by slug. When the store fails
// the fallback pages are served and fromFallback is true.
func (s *PageService) PublishedPage(ctx context.Context, slug string) (page *domain.Page, fromFallback bool, err error) {
	p, err := s.pages.GetPageBySlug(ctx, slug)
	switch {
	case err == nil && p.Published:
		return p, false, nil
	case err == nil, errors.Is(err, domain.ErrNotFound):
		// Fall through to the fallback pages so a fresh install still
		// serves its home page.
	default:
		s.log.Warn("page store unavailable, serving fallback", zap.String("slug", slug), zap.Error(err))
	}
	if s.fallback != nil {
		if fp, ok := s.fallback.Data().PageBySlug(slug); ok {
			return &fp, true, nil
		}
	}
	return nil, false, fmt.Errorf("page %s: %w", slug, domain.ErrNotFound)
}

// ── Builder sessions ───────────────────────────────────────

// session returns the open session of a page, opening it from the saved
// history (or the saved content) when needed.
func (s *PageService) session(ctx context.Context, pageID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[pageID]; ok {
		return sess, nil
	}

	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	state, err := s.history.LoadHistory(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	sess := &session{}
	if state != nil {
		sess.editor = pagebuilder.RestoreEditor(*state, s.opts...)
		sess.dirty = state.Dirty
		sess.persisted = true
	} else {
		sess.editor = pagebuilder.NewEditor(&p.Content, s.opts...)
	}
	s.sessions[pageID] = sess
	s.log.Debug("builder session opened", zap.String("page", pageID), zap.Bool("restored", state != nil))
	return sess, nil
}

// lockedSession returns the page's session with its mu held.
func (s *PageService) lockedSession(ctx context.Context, pageID string) (*session, error) {
	for {
		sess, err := s.session(ctx, pageID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		if !sess.closed {
			return sess, nil
		}
		sess.mu.Unlock()
	}
}

// closeSession clears the page's stored history while no edit of the
// page can run, and drops the open session.
func (s *PageService) closeSession(ctx context.Context, pageID string) error {
	for {
		s.mu.Lock()
		sess, ok := s.sessions[pageID]
		if !ok {
			// s.mu keeps session() from loading the rows being cleared.
			err := s.history.ClearHistory(ctx, pageID)
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()

		sess.mu.Lock()
		if sess.closed {
			// Closed by someone else, who already removed it from the map.
			sess.mu.Unlock()
			continue
		}
		sess.closed = true
		err := s.history.ClearHistory(ctx, pageID)
		s.mu.Lock()
		if s.sessions[pageID] == sess {
			delete(s.sessions, pageID)
		}
		s.mu.Unlock()
		sess.mu.Unlock()
		return err
	}
}

func stateOf(pageID string, sess *session) *BuilderState {
	return &BuilderState{
		PageID:  pageID,
		Content: sess.editor.Content(),
		CanUndo: sess.editor.CanUndo(),
		CanRedo: sess.editor.CanRedo(),
		Dirty:   sess.dirty,
	}
}

// edit runs op against the page's editor, persists what it changed in the
// history and returns the resulting state. An undo or redo with nothing
// to move to changes nothing.
func (s *PageService) edit(ctx context.Context, pageID string, kind historyOp, op func(e *pagebuilder.Editor) (applied bool, elementID string)) (*BuilderState, error) {
	sess, err := s.lockedSession(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	applied, elementID := op(sess.editor)
	if applied {
		sess.dirty = true
	}
	changed := kind == opRecord || applied
	if changed {
		s.persist(ctx, pageID, sess, kind)
	}

	st := stateOf(pageID, sess)
	st.Applied = applied
	st.ElementID = elementID
	if changed {
		s.emitter.Emit(ctx, EventBuilderChanged, map[string]any{"pageId": pageID, "applied": applied})
	}
	return st, nil
}

// persist writes one history change. The first change of a session not
// loaded from the store writes the whole buffer.
func (s *PageService) persist(ctx context.Context, pageID string, sess *session, kind historyOp) {
	var err error
	switch {
	case !sess.persisted:
		state := sess.editor.Snapshot()
		state.Dirty = sess.dirty
		err = s.history.SaveHistory(ctx, pageID, state)
	case kind == opRecord:
		err = s.history.RecordHistory(ctx, pageID, sess.editor.Content(), sess.dirty)
	case kind == opUndo:
		err = s.history.MoveHistoryCursor(ctx, pageID, -1, sess.dirty)
	default:
		err = s.history.MoveHistoryCursor(ctx, pageID, 1, sess.dirty)
	}
	if err != nil {
		// Rewrite the whole buffer on the next change.
		sess.persisted = false
		s.log.Warn("persist builder history", zap.String("page", pageID), zap.Error(err))
		return
	}
	sess.persisted = true
}

// Builder returns the current state of a page's session.
func (s *PageService) Builder(ctx context.Context, pageID string) (*BuilderState, error) {
	sess, err := s.lockedSession(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	st := stateOf(pageID, sess)
	st.Applied = true
	return st, nil
}

// FindElement returns one element of the session tree and its parent id.
func (s *PageService) FindElement(ctx context.Context, pageID, elementID string) (*domain.PageElement, string, error) {
	sess, err := s.lockedSession(ctx, pageID)
	if err != nil {
		return nil, "", err
	}
	defer sess.mu.Unlock()
	el, parentID, ok := sess.editor.Find(elementID)
	if !ok {
		return nil, "", fmt.Errorf("element %s: %w", elementID, domain.ErrNotFound)
	}
	return &el, parentID, nil
}

// AddElementInput describes an element to add. Props are merged over the
// type's defaults; Children are only kept for container types.
type AddElementInput struct {
	Type     domain.ElementType   `json:"type"`
	Props    domain.Props         `json:"props,omitempty"`
	Children []domain.PageElement `json:"children,omitempty"`
	ParentID string               `json:"parentId,omitempty"`
}

func (s *PageService) AddElement(ctx context.Context, pageID string, in AddElementInput) (*BuilderState, error) {
	el, err := pagebuilder.NewElement(in.Type, in.Props)
	if err != nil {
		return nil, err
	}
	if len(in.Children) > 0 {
		if !in.Type.IsContainer() {
			return nil, fmt.Errorf("%s elements cannot hold children: %w", in.Type, domain.ErrInvalidInput)
		}
		if err := validateElements(in.Children); err != nil {
			return nil, err
		}
		el.Children = in.Children
	}
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		id, ok := e.AddElement(el, in.ParentID)
		return ok, id
	})
}

func (s *PageService) UpdateElement(ctx context.Context, pageID, elementID string, patch pagebuilder.ElementPatch) (*BuilderState, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, fmt.Errorf("%q: %w", *patch.Type, domain.ErrUnknownElementType)
	}
	if patch.Children != nil {
		if err := validateElements(*patch.Children); err != nil {
			return nil, err
		}
	}
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		return e.UpdateElement(elementID, patch), elementID
	})
}

func (s *PageService) RemoveElement(ctx context.Context, pageID, elementID string) (*BuilderState, error) {
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		return e.RemoveElement(elementID), ""
	})
}

func (s *PageService) DuplicateElement(ctx context.Context, pageID, elementID string) (*BuilderState, error) {
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		id, ok := e.DuplicateElement(elementID)
		return ok, id
	})
}

// MoveInput is the destination of a move: position Index among the
// children of ParentID, or among the roots when ParentID is empty.
type MoveInput struct {
	Index    int    `json:"index"`
	ParentID string `json:"parentId,omitempty"`
}

func (s *PageService) MoveElement(ctx context.Context, pageID, elementID string, in MoveInput) (*BuilderState, error) {
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		return e.MoveElement(elementID, in.Index, in.ParentID), elementID
	})
}

func (s *PageService) UpdateSettings(ctx context.Context, pageID string, patch pagebuilder.SettingsPatch) (*BuilderState, error) {
	return s.edit(ctx, pageID, opRecord, func(e *pagebuilder.Editor) (bool, string) {
		e.UpdateSettings(patch)
		return true, ""
	})
}

func (s *PageService) Undo(ctx context.Context, pageID string) (*BuilderState, error) {
	return s.edit(ctx, pageID, opUndo, func(e *pagebuilder.Editor) (bool, string) {
		return e.Undo(), ""
	})
}

func (s *PageService) Redo(ctx context.Context, pageID string) (*BuilderState, error) {
	return s.edit(ctx, pageID, opRedo, func(e *pagebuilder.Editor) (bool, string) {
		return e.Redo(), ""
	})
}

// SavePage writes the session's live tree to the page. The history is
// kept so undo still works after saving.
func (s *PageService) SavePage(ctx context.Context, pageID string) (*BuilderState, error) {
	sess, err := s.lockedSession(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	p.Content = sess.editor.Content()
	if err := s.pages.UpdatePage(ctx, p); err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}
	sess.dirty = false
	if sess.persisted {
		if err := s.history.MoveHistoryCursor(ctx, pageID, 0, false); err != nil {
			s.log.Warn("persist saved state", zap.String("page", pageID), zap.Error(err))
		}
	}
	s.log.Info("page saved", zap.String("page", pageID), zap.Int("elements", sess.editor.Len()))
	s.emitter.Emit(ctx, EventPageSaved, map[string]string{"pageId": pageID, "slug": p.Slug})

	st := stateOf(pageID, sess)
	st.Applied = true
	return st, nil
}

// DiscardSession drops the session and its history; the next session
// starts from the saved content.
func (s *PageService) DiscardSession(ctx context.Context, pageID string) error {
	if err := s.closeSession(ctx, pageID); err != nil {
		return fmt.Errorf("discard session: %w", err)
	}
	s.emitter.Emit(ctx, EventBuilderChanged, map[string]any{"pageId": pageID, "discarded": true})
	return nil
}

// validateElements rejects unknown element types anywhere in list.
func validateElements(list []domain.PageElement) error {
	for _, el := range list {
		if !el.Type.Valid() {
			return fmt.Errorf("%q: %w", el.Type, domain.ErrUnknownElementType)
		}
		if len(el.Children) > 0 && !el.Type.IsContainer() {
			return fmt.Errorf("%s elements cannot hold children: %w", el.Type, domain.ErrInvalidInput)
		}
		if err := validateElements(el.Children); err != nil {
			return err
		}
	}
	return nil
}
