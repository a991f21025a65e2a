package shop_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyvia/catalogsync/internal/shop"
)

const extraProductPage = `<html><body>
<h1 class="product-name-data">Sony Bravia 65 inch TV</h1>
<span class="price">SAR 2,499</span>
</body></html>`

const extraSoldOutPage = `<html><body>
<h1 class="product-name-data">Sony Bravia 65 inch TV</h1>
<div class="product-soldout">Sold out</div>
</body></html>`

const extraSearchPage = `<html><body>
<div class="product-tile-wrapper">
  <a href="/en-sa/sony-bravia-65"><h3 class="product-name-data">Sony Bravia 65 inch TV</h3></a>
  <span class="price">SAR 2,499</span>
  <ul class="product-stats"><li>65 inch</li><li>4K HDR</li></ul>
  <picture><img src="//cdn.extra.com/100_00/bravia.jpg"/></picture>
</div>
</body></html>`

func TestExtraSession_Probe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		page      string
		wantKnown bool
		wantAvail bool
		wantPrice *float64
	}{
		{
			name:      "available with price",
			status:    http.StatusOK,
			page:      extraProductPage,
			wantKnown: true,
			wantAvail: true,
			wantPrice: ptr(2499),
		},
		{
			name:      "sold out",
			status:    http.StatusOK,
			page:      extraSoldOutPage,
			wantKnown: true,
			wantAvail: false,
		},
		{
			name:   "unrecognized markup is unknown",
			status: http.StatusOK,
			page:   `<html><body>oops</body></html>`,
		},
		{
			name:      "404 means listing gone",
			status:    http.StatusNotFound,
			wantKnown: true,
			wantAvail: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.page))
			}))
			defer srv.Close()

			adapter := shop.NewExtraAdapter(
				shop.NewFetcher("Extra"),
				shop.WithExtraBaseURL(srv.URL),
			)
			sess, err := adapter.Open(context.Background())
			require.NoError(t, err)
			defer sess.Close()

			res, err := sess.Probe(context.Background(), srv.URL+"/en-sa/sony-bravia-65")
			require.NoError(t, err)

			assert.Equal(t, tt.wantKnown, res.Known)
			assert.Equal(t, tt.wantAvail, res.Availability)
			if tt.wantPrice != nil {
				require.NotNil(t, res.Price)
				assert.InDelta(t, *tt.wantPrice, *res.Price, 1e-6)
			}
		})
	}
}

func TestExtraSession_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/en-sa/search/", r.URL.Path)
		assert.Equal(t, "96", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(extraSearchPage))
	}))
	defer srv.Close()

	adapter := shop.NewExtraAdapter(
		shop.NewFetcher("Extra"),
		shop.WithExtraBaseURL(srv.URL),
	)
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	listings, err := sess.Search(context.Background(), "sony tv")
	require.NoError(t, err)
	require.Len(t, listings, 1)

	got := listings[0]
	assert.Equal(t, "Sony Bravia 65 inch TV", got.Title)
	assert.Equal(t, srv.URL+"/en-sa/sony-bravia-65", got.Link)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 2499, *got.Price, 1e-6)
	assert.Equal(t, "65 inch; 4K HDR", got.Info)
	// Image URL is repaired: protocol added, thumbnail suffix bumped.
	assert.Equal(t, "https://cdn.extra.com/100_01/bravia.jpg", got.ImageURL)
}

func TestExtraSession_LocalizedTitle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ar-sa/sony-bravia-65", r.URL.Path)
		_, _ = w.Write([]byte(`<h1 class="product-name-data">تلفزيون سوني برافيا</h1>`))
	}))
	defer srv.Close()

	adapter := shop.NewExtraAdapter(shop.NewFetcher("Extra"), shop.WithExtraBaseURL(srv.URL))
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	title, err := sess.LocalizedTitle(context.Background(), srv.URL+"/en-sa/sony-bravia-65", "ar")
	require.NoError(t, err)
	assert.Equal(t, "تلفزيون سوني برافيا", title)
}
