package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/feed"
)

type memDest struct {
	mu    sync.Mutex
	items []feed.Item
	seen  map[string]bool
}

func (d *memDest) ImportItem(_ context.Context, it feed.Item) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.items = append(d.items, it)
	created := !d.seen[it.Name]
	d.seen[it.Name] = true
	return created, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ─────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────

func TestParsePriceCents(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{129.9, 12990},
		{"129,90", 12990},
		{"R$ 1.299,90", 129990},
		{"$1,299.90", 129990},
		{"1,299", 129900},
		{"1.299", 129900},
		{"49.5", 4950},
		{"  15 ", 1500},
	}
	for _, tt := range tests {
		got, err := feed.ParsePriceCents(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	for _, bad := range []any{"grátis", "", -3.0, -3, int64(-3), "-49,90", "R$ -1.299,90", "\u221249.90"} {
		_, err := feed.ParsePriceCents(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestMapping_Item(t *testing.T) {
	m := feed.Mapping{Name: "title", URL: "link", Price: "sale_price"}
	it, err := m.Item(feed.Record{Data: map[string]any{
		"title":      " Fone Bluetooth ",
		"link":       "https://example.com/fone",
		"sale_price": "R$ 199,00",
		"featured":   "sim",
		"currency":   "brl",
	}})
	require.NoError(t, err)

	featured := true
	want := feed.Item{
		Name:         "Fone Bluetooth",
		AffiliateURL: "https://example.com/fone",
		PriceCents:   19900,
		Currency:     "BRL",
		Featured:     &featured,
		Active:       true,
	}
	if diff := cmp.Diff(want, it); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}

	it, err = feed.DefaultMapping().Item(feed.Record{Data: map[string]any{
		"name": "Luminária", "url": "https://example.com/l", "active": "no",
	}})
	require.NoError(t, err)
	assert.False(t, it.Active)
	assert.Nil(t, it.Featured)

	_, err = m.Item(feed.Record{Data: map[string]any{"link": "https://example.com"}})
	assert.ErrorContains(t, err, `"title"`)
	_, err = m.Item(feed.Record{Data: map[string]any{"title": "Sem link"}})
	assert.ErrorContains(t, err, `"link"`)
}

// ─────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────

func TestEngine_CSVWithTransforms(t *testing.T) {
	path := writeFile(t, "feed.csv", "\ufeffname;url;price;category\n"+
		"Air Fryer;https://example.com/a;399,90;cozinha\n"+
		"Air Fryer;https://example.com/a;389,90;cozinha\n"+
		"Fone;https://example.com/f;199,00;audio\n"+
		"Sem link;;10,00;cozinha\n"+
		"Panela;https://example.com/p;abc;cozinha\n")

	dest := &memDest{}
	res, err := (&feed.Engine{Dest: dest}).Run(context.Background(), feed.Job{
		Name:       "parceiro",
		Source:     "csv",
		Config:     feed.SourceConfig{"path": path, "delimiter": ";"},
		Transforms: []feed.TransformConfig{{Type: "filter", Config: map[string]any{"field": "category", "op": "eq", "value": "cozinha"}}},
		DedupeKey:  "name",
	})
	require.NoError(t, err)

	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, 5, res.RowsRead)
	assert.Equal(t, 2, res.Dropped) // duplicate Air Fryer + audio row
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)
	require.Len(t, dest.items, 1)
	assert.Equal(t, int64(39990), dest.items[0].PriceCents)
}

func TestEngine_HTTPJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[
			{"name":"Cafeteira","url":"https://example.com/c","price":149.9,"specs":{"w":800}},
			{"name":"Chaleira","url":"https://example.com/k","price":"89,90"}
		]}}`))
	}))
	defer srv.Close()

	dest := &memDest{}
	engine := &feed.Engine{Dest: dest}
	job := feed.Job{
		Name:   "api",
		Source: "http",
		Config: feed.SourceConfig{
			"url":       srv.URL,
			"headers":   map[string]any{"Authorization": "Bearer k"},
			"data_path": "data.items",
		},
	}
	res, err := engine.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, int64(14990), dest.items[0].PriceCents)

	job.Config["headers"] = `{"Authorization":"Bearer wrong"}`
	res, err = engine.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, err.Error(), "http 401")
}

func TestEngine_HTTPCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("name,url\nMochila,https://example.com/m\n"))
	}))
	defer srv.Close()

	dest := &memDest{}
	res, err := (&feed.Engine{Dest: dest}).Run(context.Background(), feed.Job{
		Name:   "csv-remoto",
		Source: "http",
		Config: feed.SourceConfig{"url": srv.URL, "format": "csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}

func TestEngine_JSONFile(t *testing.T) {
	path := writeFile(t, "feed.json", `[{"name":"Garrafa","url":"https://example.com/g","featured":false}]`)
	dest := &memDest{}
	res, err := (&feed.Engine{Dest: dest}).Run(context.Background(), feed.Job{
		Name: "json", Source: "json", Config: feed.SourceConfig{"path": path},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.NotNil(t, dest.items[0].Featured)
	assert.False(t, *dest.items[0].Featured)
}

func TestEngine_ConfigErrors(t *testing.T) {
	engine := &feed.Engine{Dest: &memDest{}}
	ctx := context.Background()

	_, err := engine.Run(ctx, feed.Job{Name: "x", Source: "ftp"})
	assert.ErrorContains(t, err, "unknown feed source")

	_, err = engine.Run(ctx, feed.Job{Name: "x", Source: "csv", Transforms: []feed.TransformConfig{{Type: "explode"}}})
	assert.ErrorContains(t, err, "unknown type")

	_, err = engine.Run(ctx, feed.Job{Name: "x", Source: "csv", Config: feed.SourceConfig{}})
	assert.ErrorContains(t, err, "path is required")

	assert.Equal(t, []string{"csv", "http", "json"}, feed.SourceTypes())
}
