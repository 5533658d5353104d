package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/feed"
	"storefront/internal/service"
)

func csvFeed(t *testing.T, content string) feed.Job {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parceiro.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return feed.Job{Name: "parceiro", Source: "csv", Config: feed.SourceConfig{"path": path}}
}

func TestFeedService_ImportCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	st := newStores(t)
	em := &service.MockEmitter{}
	catalog := service.NewCatalogService(st.products, st.clicks, nil, em, nil)

	job := csvFeed(t, "name,url,price,category\n"+
		"Air Fryer Turbo,https://example.com/a,\"459,00\",cozinha\n"+
		"Fone ANC,https://example.com/f,\"299,90\",audio\n")
	feeds, err := service.NewFeedService(catalog, []feed.Job{job}, em, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"parceiro"}, feeds.Feeds())

	res, err := feeds.Run(ctx, "parceiro")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Contains(t, em.Names(), service.EventFeedImported)

	p, err := st.products.GetProductBySlug(ctx, "air-fryer-turbo")
	require.NoError(t, err)
	assert.Equal(t, int64(45900), p.PriceCents)
	assert.Equal(t, "BRL", p.Currency)
	assert.True(t, p.Active)

	// Curated fields survive a re-import.
	in := service.ProductInput{
		Slug: p.Slug, Name: p.Name, PriceCents: p.PriceCents, AffiliateURL: p.AffiliateURL,
		Category: p.Category, Active: true, Featured: true, SortOrder: 7,
	}
	_, err = catalog.UpdateProduct(ctx, p.ID, in)
	require.NoError(t, err)

	res, err = feeds.Run(ctx, "parceiro")
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 2, res.Updated)

	p, err = st.products.GetProductBySlug(ctx, "air-fryer-turbo")
	require.NoError(t, err)
	assert.True(t, p.Featured)
	assert.Equal(t, 7, p.SortOrder)
}

func TestFeedService_InvalidRowsAreReported(t *testing.T) {
	st := newStores(t)
	catalog := service.NewCatalogService(st.products, st.clicks, nil, &service.MockEmitter{}, nil)
	feeds, err := service.NewFeedService(catalog, nil, &service.MockEmitter{}, nil)
	require.NoError(t, err)

	res, err := feeds.Import(context.Background(), csvFeed(t, "name,url\nRelógio,ftp://example.com/r\nCaneca,https://example.com/c\n"))
	require.NoError(t, err)
	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "affiliateUrl")
}

func TestFeedService_Errors(t *testing.T) {
	st := newStores(t)
	catalog := service.NewCatalogService(st.products, st.clicks, nil, &service.MockEmitter{}, nil)

	_, err := service.NewFeedService(catalog, []feed.Job{{Name: "a", Source: "csv"}, {Name: "a", Source: "json"}}, nil, nil)
	assert.ErrorContains(t, err, "duplicate feed")
	_, err = service.NewFeedService(catalog, []feed.Job{{Name: "a", Source: "ftp"}}, nil, nil)
	assert.ErrorContains(t, err, "unknown feed source")

	feeds, err := service.NewFeedService(catalog, nil, &service.MockEmitter{}, nil)
	require.NoError(t, err)
	_, err = feeds.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, feeds.RunAll(context.Background()))
}
