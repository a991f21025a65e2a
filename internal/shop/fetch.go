package shop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buyvia/catalogsync/internal/metrics"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxPageBytes caps how much of a product page is read. Listing pages
// carry their markers and prices well within the first couple of MB.
const maxPageBytes = 4 << 20

// ErrPageNotFound is returned for a 404 response, which adapters treat
// as a definitive "listing gone" signal rather than a fetch failure.
var ErrPageNotFound = errors.New("page not found")

// Fetcher performs rate-limited HTTP GETs against a store, shared by
// all sessions of that store's adapter.
type Fetcher struct {
	store       string
	client      *http.Client
	rateLimiter *RateLimiter
	userAgent   string
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = hc
	}
}

// WithRateLimiter injects a rate limiter that controls per-second and
// daily fetch limits. When set, every Get() call goes through Wait() first.
func WithRateLimiter(r *RateLimiter) FetcherOption {
	return func(f *Fetcher) {
		f.rateLimiter = r
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a fetcher labeled with the store name it serves.
func NewFetcher(store string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:     store,
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches a URL and returns the response body. A 404 maps to
// ErrPageNotFound; any other non-2xx status is an error.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if f.rateLimiter != nil {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.FetchDailyLimitHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.FetchDailyUsage.Set(float64(f.rateLimiter.DailyCount()))
	}
	metrics.FetchCallsTotal.WithLabelValues(f.store).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ar;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("store returned status %d for %s", resp.StatusCode, rawURL)
	}

	return body, nil
}
