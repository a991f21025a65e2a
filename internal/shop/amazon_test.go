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

const amazonProductPage = `<html><body>
<span id="productTitle" class="a-size-large">Dell PowerEdge R740 Server</span>
<span class="a-price"><span class="a-offscreen">SAR 3,499.00</span></span>
</body></html>`

const amazonUnavailablePage = `<html><body>
<span id="productTitle" class="a-size-large">Dell PowerEdge R740 Server</span>
<span class="a-color-price">Currently unavailable.</span>
</body></html>`

const amazonRobotPage = `<html><body>
<h4>Robot Check</h4>
<p>Sorry, we just need to make sure you're not a robot.</p>
</body></html>`

const amazonSearchPage = `<html><body><div class="s-main-slot">
<div class="s-result-item" data-component-type="s-search-result">
  <h2 class="a-size-mini"><a class="a-link-normal" href="/Dell-PowerEdge-R740/dp/B0TEST001"><span>Dell PowerEdge R740</span></a></h2>
  <span class="a-price-whole">3,499</span><span class="a-price-fraction">00</span>
  <img class="s-image" src="https://m.media-amazon.com/images/I/r740.jpg"/>
</div>
<div class="s-result-item" data-component-type="s-search-result">
  <h2 class="a-size-mini"><a class="a-link-normal" href="/HPE-ProLiant-DL380/dp/B0TEST002"><span>HPE ProLiant DL380</span></a></h2>
  <img class="s-image" src="https://m.media-amazon.com/images/I/dl380.jpg"/>
</div>
</div></body></html>`

func TestAmazonSession_Probe(t *testing.T) {
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
			page:      amazonProductPage,
			wantKnown: true,
			wantAvail: true,
			wantPrice: ptr(3499.00),
		},
		{
			name:      "currently unavailable",
			status:    http.StatusOK,
			page:      amazonUnavailablePage,
			wantKnown: true,
			wantAvail: false,
		},
		{
			name:   "robot check page is unknown",
			status: http.StatusOK,
			page:   amazonRobotPage,
		},
		{
			name:   "unrecognized markup is unknown",
			status: http.StatusOK,
			page:   `<html><body>nothing here</body></html>`,
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

			adapter := shop.NewAmazonAdapter(
				shop.NewFetcher("Amazon"),
				shop.WithAmazonBaseURL(srv.URL),
			)
			sess, err := adapter.Open(context.Background())
			require.NoError(t, err)
			defer sess.Close()

			res, err := sess.Probe(context.Background(), srv.URL+"/product/dp/B0TEST001")
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

func TestAmazonSession_Probe_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := shop.NewAmazonAdapter(shop.NewFetcher("Amazon"), shop.WithAmazonBaseURL(srv.URL))
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Probe(context.Background(), srv.URL+"/product/dp/B0TEST001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestAmazonSession_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dell server", r.URL.Query().Get("k"))
		assert.Equal(t, "en_AE", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(amazonSearchPage))
	}))
	defer srv.Close()

	adapter := shop.NewAmazonAdapter(
		shop.NewFetcher("Amazon"),
		shop.WithAmazonBaseURL(srv.URL),
	)
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	listings, err := sess.Search(context.Background(), "dell server")
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "Dell PowerEdge R740", listings[0].Title)
	assert.Equal(t, srv.URL+"/Dell-PowerEdge-R740/dp/B0TEST001", listings[0].Link)
	require.NotNil(t, listings[0].Price)
	assert.InDelta(t, 3499.00, *listings[0].Price, 1e-6)
	assert.Equal(t, "https://m.media-amazon.com/images/I/r740.jpg", listings[0].ImageURL)

	assert.Equal(t, "HPE ProLiant DL380", listings[1].Title)
	assert.Nil(t, listings[1].Price)
}

func TestAmazonSession_LocalizedTitle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ar_AE", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(`<span id="productTitle" class="a-size-large">خادم ديل باور إيدج</span>`))
	}))
	defer srv.Close()

	adapter := shop.NewAmazonAdapter(shop.NewFetcher("Amazon"), shop.WithAmazonBaseURL(srv.URL))
	sess, err := adapter.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	title, err := sess.LocalizedTitle(context.Background(), srv.URL+"/product/dp/B0TEST001", "ar")
	require.NoError(t, err)
	assert.Equal(t, "خادم ديل باور إيدج", title)
}

func ptr(v float64) *float64 { return &v }
