package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/service"
	"storefront/internal/storage"
)

type testEnv struct {
	srv      *Server
	db       *storage.DB
	pages    *service.PageService
	catalog  *service.CatalogService
	emitter  *service.MockEmitter
	approval *storage.ApprovalStore
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	em := &service.MockEmitter{}
	env := &testEnv{
		db:       db,
		emitter:  em,
		pages:    service.NewPageService(storage.NewPageStore(db), storage.NewHistoryStore(db, 0), nil, em, nil, 0),
		catalog:  service.NewCatalogService(storage.NewProductStore(db), storage.NewClickStore(db), nil, em, nil),
		approval: storage.NewApprovalStore(db),
	}
	deps := Deps{
		Emitter: em,
		Pages:   env.pages,
		Catalog: env.catalog,
		Uploads: service.NewUploadService(t.TempDir(), 0, nil),
	}
	if withStore {
		deps.Approvals = env.approval
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.srv = New(ctx, deps)
	env.srv.approval.poll = 10 * time.Millisecond
	return env
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func decodeState(t *testing.T, res *mcp.CallToolResult) service.BuilderState {
	t.Helper()
	var st service.BuilderState
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &st))
	return st
}

// ─────────────────────────────────────────────────────────────
// Builder tools
// ─────────────────────────────────────────────────────────────

func TestBuilderTools_EditThroughActivePage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)

	res, err := env.srv.handleCreatePage(ctx, call("create_page", map[string]any{"title": "Black Friday"}))
	require.NoError(t, err)
	var page domain.Page
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &page))
	assert.Equal(t, "black-friday", page.Slug)

	res, err = env.srv.handleAddElement(ctx, call("add_element", map[string]any{
		"type":  "container",
		"props": map[string]any{"padding": "24px"},
		"children": []any{
			map[string]any{"type": "heading", "props": map[string]any{"text": "Ofertas"}},
		},
	}))
	require.NoError(t, err)
	st := decodeState(t, res)
	require.Len(t, st.Content.Elements, 1)
	box := st.Content.Elements[0]
	require.Len(t, box.Children, 1)
	assert.NotEmpty(t, box.Children[0].ID, "ids are assigned by the server")

	// Props may also arrive JSON-encoded.
	res, err = env.srv.handleUpdateElement(ctx, call("update_element", map[string]any{
		"elementId": box.Children[0].ID,
		"props":     `{"text": "Ofertas imperdíveis"}`,
	}))
	require.NoError(t, err)
	st = decodeState(t, res)
	assert.Equal(t, "Ofertas imperdíveis", st.Content.Elements[0].Children[0].Props["text"])

	res, err = env.srv.handleMoveElement(ctx, call("move_element", map[string]any{
		"elementId": box.Children[0].ID,
		"index":     float64(0),
	}))
	require.NoError(t, err)
	st = decodeState(t, res)
	require.Len(t, st.Content.Elements, 2)
	assert.Equal(t, domain.ElementHeading, st.Content.Elements[0].Type)

	res, err = env.srv.handleUndo(ctx, call("undo", nil))
	require.NoError(t, err)
	st = decodeState(t, res)
	assert.Len(t, st.Content.Elements, 1)

	res, err = env.srv.handleSavePage(ctx, call("save_page", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "saved")

	saved, err := env.pages.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Content.Elements, 1)
}

func TestBuilderTools_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)

	_, err := env.srv.handleUndo(ctx, call("undo", nil))
	assert.ErrorContains(t, err, "no active page")

	p, err := env.pages.CreatePage(ctx, service.PageInput{Title: "Errors"})
	require.NoError(t, err)

	res, err := env.srv.handleAddElement(ctx, call("add_element", map[string]any{"pageId": p.ID, "type": "marquee"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = env.srv.handleAddElement(ctx, call("add_element", map[string]any{"pageId": p.ID, "type": "heading", "props": "{not json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = env.srv.handleRemoveElement(ctx, call("remove_element", map[string]any{"pageId": p.ID, "elementId": "ghost"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "nothing changed")

	res, err = env.srv.handleGetPage(ctx, call("get_page", map[string]any{"pageId": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

// ─────────────────────────────────────────────────────────────
// Approvals
// ─────────────────────────────────────────────────────────────

func TestDeletePage_ApprovedInProcess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	p, err := env.pages.CreatePage(ctx, service.PageInput{Title: "Temp"})
	require.NoError(t, err)

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		res, _ := env.srv.handleDeletePage(ctx, call("delete_page", map[string]any{"pageId": p.ID}))
		done <- res
	}()

	var pending []PendingAction
	require.Eventually(t, func() bool {
		pending = env.srv.Approvals().Pending()
		return len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "delete_page", pending[0].Tool)
	assert.Contains(t, env.emitter.Names(), EventApprovalRequired)

	require.True(t, env.srv.Approvals().Approve(pending[0].ID))
	res := <-done
	assert.Contains(t, resultText(t, res), "deleted")

	_, err = env.pages.GetPage(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletePage_RejectedThroughStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	p, err := env.pages.CreatePage(ctx, service.PageInput{Title: "Keep"})
	require.NoError(t, err)

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		res, _ := env.srv.handleDeletePage(ctx, call("delete_page", map[string]any{"pageId": p.ID}))
		done <- res
	}()

	// Another process resolves the request through the shared store.
	var pending []domain.Approval
	require.Eventually(t, func() bool {
		pending, err = env.approval.ListPendingApprovals(ctx)
		return err == nil && len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, env.approval.SetApprovalStatus(ctx, pending[0].ID, domain.ApprovalRejected))

	res := <-done
	assert.Contains(t, resultText(t, res), "not deleted")
	_, err = env.pages.GetPage(ctx, p.ID)
	assert.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := env.approval.GetApproval(ctx, pending[0].ID)
		return err != nil
	}, time.Second, 10*time.Millisecond, "resolved approvals are removed")
}

func TestApprovalQueue_Timeout(t *testing.T) {
	q := NewApprovalQueue(context.Background(), &service.MockEmitter{})
	q.SetTimeout(20 * time.Millisecond)
	approved, err := q.Request(context.Background(), "delete_page", "Delete page x")
	assert.False(t, approved)
	assert.ErrorContains(t, err, "timed out")
	assert.Empty(t, q.Pending())
	assert.False(t, q.Reject("unknown"))
}

// ─────────────────────────────────────────────────────────────
// Resources
// ─────────────────────────────────────────────────────────────

func TestExtractPageIDFromURI(t *testing.T) {
	tests := map[string]string{
		"storefront://page/abc-123/content": "abc-123",
		"storefront://page//content":        "",
		"storefront://page/a/b/content":     "",
		"storefront://pages":                "",
		"notes://page/abc/content":          "",
	}
	for uri, want := range tests {
		assert.Equal(t, want, extractPageIDFromURI(uri), uri)
	}
}

func TestPageContentResource(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	p, err := env.pages.CreatePage(ctx, service.PageInput{Title: "Live"})
	require.NoError(t, err)
	_, err = env.pages.AddElement(ctx, p.ID, service.AddElementInput{Type: domain.ElementDivider})
	require.NoError(t, err)

	var req mcp.ReadResourceRequest
	req.Params.URI = "storefront://page/" + p.ID + "/content"
	contents, err := env.srv.handlePageContentResource(ctx, req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	var content domain.PageContent
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &content))
	require.Len(t, content.Elements, 1, "unsaved edits are visible")
	assert.Equal(t, domain.ElementDivider, content.Elements[0].Type)
}
