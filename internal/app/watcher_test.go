package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	mcpserver "storefront/internal/mcp"
	"storefront/internal/service"
	"storefront/internal/storage"
)

func TestApprovalWatcher_ForwardsStoreChanges(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	approvals := storage.NewApprovalStore(db)
	pages := storage.NewPageStore(db)
	emitter := &service.MockEmitter{}
	w := newApprovalWatcher(approvals, pages, emitter, zap.NewNop())

	w.check(ctx)
	assert.Empty(t, emitter.Names(), "first poll only records the baseline")

	require.NoError(t, approvals.CreateApproval(ctx, &domain.Approval{ID: "a1", Tool: "delete_page", Description: "Delete page promo"}))
	require.NoError(t, pages.CreatePage(ctx, &domain.Page{ID: "p1", Slug: "promo", Title: "Promo", Content: domain.NewPageContent()}))

	w.check(ctx)
	w.check(ctx)
	assert.Equal(t, []string{service.EventPagesChanged, mcpserver.EventApprovalRequired}, emitter.Names())

	require.NoError(t, approvals.SetApprovalStatus(ctx, "a1", domain.ApprovalRejected))
	w.check(ctx)
	assert.Equal(t, []string{
		service.EventPagesChanged,
		mcpserver.EventApprovalRequired,
		mcpserver.EventApprovalDismissed,
	}, emitter.Names())
}
