package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/service"
)

const (
	adminUser = "admin"
	adminPass = "s3cret"
)

func newTestApp(t *testing.T) (*app.App, *echo.Echo) {
	t.Helper()
	v := config.New(filepath.Join(t.TempDir(), "absent.yaml"))
	v.Set("data_dir", t.TempDir())
	v.Set("admin.password", adminPass)
	cfg, err := config.Resolve(v)
	require.NoError(t, err)

	a := app.New(cfg, v, nil)
	require.NoError(t, a.Startup(context.Background()))
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, a.Echo()
}

type request struct {
	method string
	path   string
	body   any
	admin  bool
}

func do(t *testing.T, e *echo.Echo, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.admin {
		req.SetBasicAuth(adminUser, adminPass)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ─────────────────────────────────────────────────────────────
// Public API
// ─────────────────────────────────────────────────────────────

func TestPublicCatalog_SeededStore(t *testing.T) {
	a, e := newTestApp(t)
	res, err := a.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Products)

	rec := do(t, e, request{method: http.MethodGet, path: "/api/products"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Fallback"))
	assert.Len(t, decode[[]domain.Product](t, rec), 3)

	rec = do(t, e, request{method: http.MethodGet, path: "/api/products/air-fryer-digital"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "air-fryer-digital", decode[domain.Product](t, rec).Slug)

	rec = do(t, e, request{method: http.MethodGet, path: "/go/air-fryer-digital"})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "B0EXAMPLE1")

	rec = do(t, e, request{method: http.MethodGet, path: "/api/products/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeed_SkipsPopulatedSections(t *testing.T) {
	a, _ := newTestApp(t)
	first, err := a.Seed(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, first.Pages)

	second, err := a.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, app.SeedResult{}, *second)
}

func TestPublicContent_EmptyStoreServesFallback(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodGet, path: "/api/nav"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]domain.NavLink](t, rec))

	rec = do(t, e, request{method: http.MethodGet, path: "/api/pages/home"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Fallback"))
}

func TestNewsletter_Subscribe(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodPost, path: "/api/newsletter", body: map[string]string{"email": " Ana@Example.com "}})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/newsletter", body: map[string]string{"email": "ana@example.com"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/newsletter", body: map[string]string{"email": "not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["message"], "email")

	rec = do(t, e, request{method: http.MethodGet, path: "/api/admin/subscribers", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[[]domain.Subscriber](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, "ana@example.com", subs[0].Email)
}

// ─────────────────────────────────────────────────────────────
// Admin API
// ─────────────────────────────────────────────────────────────

func TestAdminAuth(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodPost, path: "/api/admin/login"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.SetBasicAuth(adminUser, "wrong")
	bad := httptest.NewRecorder()
	e.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/login", admin: true})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminProducts_ValidationAndClicks(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodPost, path: "/api/admin/products", admin: true, body: service.ProductInput{Name: ""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/products", admin: true, body: service.ProductInput{
		Name:         "Cafeteira Italiana",
		PriceCents:   12990,
		Currency:     "brl",
		AffiliateURL: "https://example.com/cafeteira",
		Active:       true,
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[domain.Product](t, rec)
	assert.Equal(t, "cafeteira-italiana", p.Slug)
	assert.Equal(t, "BRL", p.Currency)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/products/" + p.ID + "/click"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com/cafeteira", decode[map[string]string](t, rec)["affiliateUrl"])

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/jobs/" + service.JobClickRollup + "/run", admin: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, request{method: http.MethodGet, path: "/api/admin/products/" + p.ID + "/clicks", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.ClickStats](t, rec)
	assert.Equal(t, int64(1), stats.Total)
	assert.Zero(t, stats.Pending)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/jobs/reindex/run", admin: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, request{method: http.MethodDelete, path: "/api/admin/products/" + p.ID, admin: true})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, request{method: http.MethodDelete, path: "/api/admin/products/" + p.ID, admin: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminNav_Reorder(t *testing.T) {
	_, e := newTestApp(t)

	var ids []string
	for _, label := range []string{"Ofertas", "Blog"} {
		rec := do(t, e, request{method: http.MethodPost, path: "/api/admin/nav", admin: true, body: service.NavLinkInput{
			Label: label, Href: "/" + label, Visible: true,
		}})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[domain.NavLink](t, rec).ID)
	}

	rec := do(t, e, request{method: http.MethodPost, path: "/api/admin/nav/reorder", admin: true, body: map[string][]string{"ids": {ids[1], ids[0]}}})
	require.Equal(t, http.StatusOK, rec.Code)
	links := decode[[]domain.NavLink](t, rec)
	require.Len(t, links, 2)
	assert.Equal(t, "Blog", links[0].Label)

	rec = do(t, e, request{method: http.MethodGet, path: "/api/nav"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Blog", decode[[]domain.NavLink](t, rec)[0].Label)
}

func TestBuilder_EditUndoRedoSave(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodPost, path: "/api/admin/pages", admin: true, body: service.PageInput{Title: "Black Friday", Published: true}})
	require.Equal(t, http.StatusCreated, rec.Code)
	page := decode[domain.Page](t, rec)
	base := "/api/admin/pages/" + page.ID + "/builder"

	rec = do(t, e, request{method: http.MethodPost, path: base + "/elements", admin: true, body: service.AddElementInput{
		Type:  domain.ElementHeading,
		Props: domain.Props{"text": "Ofertas"},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[service.BuilderState](t, rec)
	require.True(t, state.Applied)
	require.Len(t, state.Content.Elements, 1)
	assert.True(t, state.CanUndo)
	headingID := state.ElementID

	rec = do(t, e, request{method: http.MethodPatch, path: base + "/elements/" + headingID, admin: true, body: map[string]any{"props": map[string]any{"text": "Ofertas da semana"}}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ofertas da semana", decode[service.BuilderState](t, rec).Content.Elements[0].Props["text"])

	rec = do(t, e, request{method: http.MethodPost, path: base + "/undo", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ofertas", decode[service.BuilderState](t, rec).Content.Elements[0].Props["text"])

	rec = do(t, e, request{method: http.MethodPost, path: base + "/redo", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.BuilderState](t, rec).CanRedo)

	// Unsaved edits stay off the public site.
	rec = do(t, e, request{method: http.MethodGet, path: "/api/pages/black-friday"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.Page](t, rec).Content.Elements)

	rec = do(t, e, request{method: http.MethodPost, path: base + "/save", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.BuilderState](t, rec).Dirty)

	rec = do(t, e, request{method: http.MethodGet, path: "/api/pages/black-friday"})
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[domain.Page](t, rec)
	require.Len(t, public.Content.Elements, 1)
	assert.Equal(t, "Ofertas da semana", public.Content.Elements[0].Props["text"])
}

func TestBuilder_Errors(t *testing.T) {
	_, e := newTestApp(t)

	rec := do(t, e, request{method: http.MethodGet, path: "/api/admin/pages/missing/builder", admin: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/pages", admin: true, body: service.PageInput{Title: "Landing"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[domain.Page](t, rec).ID

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/pages/" + id + "/builder/elements", admin: true, body: map[string]string{"type": "carousel"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/pages/"+id+"/builder/elements", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.SetBasicAuth(adminUser, adminPass)
	bad := httptest.NewRecorder()
	e.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	// Removing an unknown element is a no-op, not an error.
	rec = do(t, e, request{method: http.MethodDelete, path: "/api/admin/pages/" + id + "/builder/elements/ghost", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[service.BuilderState](t, rec).Applied)
}

func TestUpload_Multipart(t *testing.T) {
	_, e := newTestApp(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "whatever.html")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.SetBasicAuth(adminUser, adminPass)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	up := decode[service.Upload](t, rec)
	assert.Equal(t, "image/png", up.ContentType)

	rec = do(t, e, request{method: http.MethodGet, path: up.URL})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApprovals_ResolvedThroughStore(t *testing.T) {
	a, e := newTestApp(t)
	ctx := context.Background()
	store := a.Backend().Approvals
	require.NoError(t, store.CreateApproval(ctx, &domain.Approval{
		ID:          "ap-1",
		Tool:        "delete_product",
		Description: "Delete product air-fryer",
	}))

	rec := do(t, e, request{method: http.MethodGet, path: "/api/admin/approvals", admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]map[string]any](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, "delete_product", pending[0]["tool"])

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/approvals/ap-1/approve", admin: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := store.GetApproval(ctx, "ap-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, got.Status)

	rec = do(t, e, request{method: http.MethodPost, path: "/api/admin/approvals/ap-1/reject", admin: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
