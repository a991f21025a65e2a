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

const jarirProductPage = `<html><body>
<span class="product-title__title">HP Victus Gaming Laptop</span>
<div class="price">4,599 SAR</div>
<button class="btn--add-to-cart">Add to cart</button>
</body></html>`

const jarirOutOfStockPage = `<html><body>
<span class="product-title__title">HP Victus Gaming Laptop</span>
<div class="out-of-stock">Out of stock</div>
</body></html>`

const jarirSearchPage = `<html><body>
<div class="product-tile">
  <a class="product-tile__link" href="/sa-en/hp-victus-gaming-laptop"></a>
  <span class="product-title__title">HP Victus Gaming Laptop</span>
  <span class="product-title__info">16 GB RAM, RTX 4060</span>
  <div class="price">4,599 SAR</div>
  <img class="image--contain" src="//cdn.jarir.com/victus.jpg"/>
</div>
<div class="product-tile">
  <a class="product-tile__link" href="https://www.jarir.com/sa-en/lenovo-legion"></a>
  <span class="product-title__title">Lenovo Legion 5</span>
  <img class="image--contain" src="//cdn.jarir.com/placeholder.jpg"/>
</div>
</body></html>`

func TestJarirSession_Probe(t *testing.T) {
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
			page:      jarirProductPage,
			wantKnown: true,
			wantAvail: true,
			wantPrice: ptr(4599),
		},
		{
			name:      "out of stock",
			status:    http.StatusOK,
			page:      jarirOutOfStockPage,
			wantKnown: true,
			wantAvail: false,
		},
		{
			name:   "error shell is unknown",
			status: http.StatusOK,
			page:   `<html><body><div class="maintenance">Back soon</div></body></html>`,
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

			adapter := shop.NewJarirAdapter(
				shop.NewFetcher("Jarir"),
				shop.WithJarirBaseURL(srv.URL),
			)
			sess, err := adapter.Open(context.Background())
			require.NoError(t, err)
			defer sess.Close()

			res, err := sess.Probe(context.Background(), srv.URL+"/sa-en/hp-victus-gaming-laptop")
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

func TestJarirSession_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sa-en/catalogsearch/result", r.URL.Path)
		assert.Equal(t, "gaming laptop", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(jarirSearchPage))
	}))
	defer srv.Close()

	adapter := shop.NewJarirAdapter(
		shop.NewFetcher("Jarir"),
		shop.WithJarirBaseURL(srv.URL),
	)
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	listings, err := sess.Search(context.Background(), "gaming laptop")
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "HP Victus Gaming Laptop", listings[0].Title)
	assert.Equal(t, srv.URL+"/sa-en/hp-victus-gaming-laptop", listings[0].Link)
	assert.Equal(t, "16 GB RAM, RTX 4060", listings[0].Info)
	require.NotNil(t, listings[0].Price)
	assert.InDelta(t, 4599, *listings[0].Price, 1e-6)
	assert.Equal(t, "https://cdn.jarir.com/victus.jpg", listings[0].ImageURL)

	// Placeholder images are dropped, absolute links kept as-is.
	assert.Equal(t, "Lenovo Legion 5", listings[1].Title)
	assert.Equal(t, "https://www.jarir.com/sa-en/lenovo-legion", listings[1].Link)
	assert.Empty(t, listings[1].ImageURL)
	assert.Nil(t, listings[1].Price)
}

func TestJarirSession_LocalizedTitle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The Arabic variant drops the sa-en prefix and pins the country.
		assert.Equal(t, "/hp-victus-gaming-laptop", r.URL.Path)
		assert.Equal(t, "sa", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(`<span class="product-title__title">لابتوب اتش بي فيكتوس</span>`))
	}))
	defer srv.Close()

	adapter := shop.NewJarirAdapter(shop.NewFetcher("Jarir"), shop.WithJarirBaseURL(srv.URL))
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	title, err := sess.LocalizedTitle(context.Background(), srv.URL+"/sa-en/hp-victus-gaming-laptop", "ar")
	require.NoError(t, err)
	assert.Equal(t, "لابتوب اتش بي فيكتوس", title)
}

func TestJarirSession_LocalizedTitle_UnsupportedLanguage(t *testing.T) {
	t.Parallel()

	adapter := shop.NewJarirAdapter(shop.NewFetcher("Jarir"))
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	title, err := sess.LocalizedTitle(context.Background(), "https://www.jarir.com/sa-en/x", "fr")
	require.NoError(t, err)
	assert.Empty(t, title)
}
