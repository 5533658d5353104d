package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	mcpserver "storefront/internal/mcp"
	"storefront/internal/service"
)

type pageLister interface {
	ListPages(ctx context.Context) ([]domain.Page, error)
}

// approvalWatcher polls the store for changes made by a standalone MCP
// process and forwards them as events: new pending approvals, approvals
// that went away, and edits to the page list.
type approvalWatcher struct {
	approvals domain.ApprovalStore
	pages     pageLister
	emitter   service.EventEmitter
	log       *zap.Logger
	interval  time.Duration

	// only touched by the polling goroutine
	emitted      map[string]bool
	lastPageList string
}

func newApprovalWatcher(approvals domain.ApprovalStore, pages pageLister, emitter service.EventEmitter, log *zap.Logger) *approvalWatcher {
	return &approvalWatcher{
		approvals: approvals,
		pages:     pages,
		emitter:   emitter,
		log:       log,
		interval:  2 * time.Second,
		emitted:   map[string]bool{},
	}
}

// Run polls until ctx is cancelled.
func (w *approvalWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *approvalWatcher) check(ctx context.Context) {
	if w.pages != nil {
		w.checkPages(ctx)
	}
	if w.approvals != nil {
		w.checkApprovals(ctx)
	}
}

func (w *approvalWatcher) checkPages(ctx context.Context) {
	pages, err := w.pages.ListPages(ctx)
	if err != nil {
		w.log.Debug("poll pages", zap.Error(err))
		return
	}
	var latest time.Time
	for _, p := range pages {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	fingerprint := fmt.Sprintf("%d:%s", len(pages), latest.Format(time.RFC3339Nano))
	changed := w.lastPageList != "" && w.lastPageList != fingerprint
	w.lastPageList = fingerprint
	if changed {
		w.emitter.Emit(ctx, service.EventPagesChanged, map[string]string{"source": "store"})
	}
}

func (w *approvalWatcher) checkApprovals(ctx context.Context) {
	pending, err := w.approvals.ListPendingApprovals(ctx)
	if err != nil {
		w.log.Debug("poll approvals", zap.Error(err))
		return
	}
	seen := make(map[string]bool, len(pending))
	for _, a := range pending {
		seen[a.ID] = true
		if w.emitted[a.ID] {
			continue
		}
		w.emitted[a.ID] = true
		w.emitter.Emit(ctx, mcpserver.EventApprovalRequired, mcpserver.PendingAction{
			ID:          a.ID,
			Tool:        a.Tool,
			Description: a.Description,
			CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
			Metadata:    a.Metadata,
		})
	}
	// Resolved, timed out or deleted by the agent process.
	for id := range w.emitted {
		if !seen[id] {
			delete(w.emitted, id)
			w.emitter.Emit(ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
		}
	}
}
