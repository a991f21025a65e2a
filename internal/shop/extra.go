package shop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

const defaultExtraBaseURL = "https://www.extra.com"

// Extra caps its grid at 96 tiles per page.
const extraPageSize = 96

var (
	extraTitleRe = regexp.MustCompile(`(?s)class="product-name-data[^"]*"[^>]*>(.*?)</`)
	extraPriceRe = regexp.MustCompile(`(?s)class="price[^"]*"[^>]*>(.*?)</`)
	extraLinkRe  = regexp.MustCompile(`<a[^>]*href="([^"]+)"`)
	extraStatsRe = regexp.MustCompile(`(?s)<ul[^>]*class="product-stats[^"]*"[^>]*>(.*?)</ul>`)
	extraLiRe    = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	extraImageRe = regexp.MustCompile(`(?s)<picture[^>]*>.*?<img[^>]*src="([^"]+)"`)
)

// ExtraAdapter probes and searches extra.com listing pages.
type ExtraAdapter struct {
	fetcher  *Fetcher
	baseURL  string
	maxPages int
}

// ExtraOption configures the ExtraAdapter.
type ExtraOption func(*ExtraAdapter)

// WithExtraBaseURL overrides the store base URL, used in tests.
func WithExtraBaseURL(u string) ExtraOption {
	return func(e *ExtraAdapter) {
		e.baseURL = strings.TrimRight(u, "/")
	}
}

// WithExtraMaxPages limits how many result pages a search walks.
func WithExtraMaxPages(n int) ExtraOption {
	return func(e *ExtraAdapter) {
		e.maxPages = n
	}
}

// NewExtraAdapter creates the Extra adapter around a fetcher.
func NewExtraAdapter(fetcher *Fetcher, opts ...ExtraOption) *ExtraAdapter {
	e := &ExtraAdapter{
		fetcher:  fetcher,
		baseURL:  defaultExtraBaseURL,
		maxPages: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Adapter.
func (e *ExtraAdapter) Name() string { return domain.StoreExtra }

// Open implements Adapter.
func (e *ExtraAdapter) Open(_ context.Context) (Session, error) {
	return &extraSession{adapter: e}, nil
}

type extraSession struct {
	adapter *ExtraAdapter
}

// Probe classifies one product page.
func (s *extraSession) Probe(ctx context.Context, link string) (domain.ProbeResult, error) {
	body, err := s.adapter.fetcher.Get(ctx, link)
	if errors.Is(err, ErrPageNotFound) {
		return domain.ProbeResult{Known: true, Availability: false}, nil
	}
	if err != nil {
		return domain.ProbeResult{}, err
	}

	page := string(body)
	if firstMatch(extraTitleRe, page) == "" {
		return domain.ProbeResult{}, nil
	}

	res := domain.ProbeResult{
		Known: true,
		Availability: !strings.Contains(page, "product-soldout") &&
			!strings.Contains(page, "outOfStock"),
	}
	if raw := stripTags(firstMatch(extraPriceRe, page)); raw != "" {
		res.Price = NormalizePrice(strings.ReplaceAll(raw, "SAR", ""))
	}
	return res, nil
}

// Search walks paginated search results for one term.
func (s *extraSession) Search(ctx context.Context, term string) ([]domain.RawListing, error) {
	q := url.QueryEscape(term)
	base := fmt.Sprintf(
		"%s/en-sa/search/?q=%s%%3Arelevance%%3Atype%%3APRODUCT&text=%s&pageSize=%d&sort=relevance",
		s.adapter.baseURL, q, q, extraPageSize,
	)

	var listings []domain.RawListing
	seen := make(map[string]struct{})

	for page := 1; page <= s.adapter.maxPages; page++ {
		body, err := s.adapter.fetcher.Get(ctx, fmt.Sprintf("%s&pg=%d", base, page))
		if err != nil {
			return nil, fmt.Errorf("extra search page %d: %w", page, err)
		}

		doc := string(body)
		for _, block := range splitBlocks(doc, `class="product-tile-wrapper"`) {
			listing, ok := s.parseTile(block)
			if !ok {
				continue
			}
			key := listing.Title + "|" + listing.Link
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			listings = append(listings, listing)
		}

		// The next control goes hidden on the last page; no pagination
		// wrapper at all means a single page of results.
		if !strings.Contains(doc, "pagination-wrapper") {
			break
		}
		if !strings.Contains(doc, `class="next`) || strings.Contains(doc, `class="next hidden`) {
			break
		}
	}

	return listings, nil
}

func (s *extraSession) parseTile(block string) (domain.RawListing, bool) {
	title := stripTags(firstMatch(extraTitleRe, block))
	link := firstMatch(extraLinkRe, block)
	if title == "" || link == "" {
		return domain.RawListing{}, false
	}
	if !strings.HasPrefix(link, "http") {
		link = s.adapter.baseURL + link
	}

	listing := domain.RawListing{
		Title:    title,
		Link:     link,
		ImageURL: CleanImageURL(firstMatch(extraImageRe, block)),
	}
	if raw := stripTags(firstMatch(extraPriceRe, block)); raw != "" {
		listing.Price = NormalizePrice(strings.ReplaceAll(raw, "SAR", ""))
	}

	if stats := firstMatch(extraStatsRe, block); stats != "" {
		var items []string
		for _, li := range extraLiRe.FindAllStringSubmatch(stats, -1) {
			if text := stripTags(li[1]); text != "" {
				items = append(items, text)
			}
		}
		listing.Info = strings.Join(items, "; ")
	}

	return listing, true
}

// LocalizedTitle fetches the Arabic variant of the product page, which
// Extra serves under the ar-sa path prefix.
func (s *extraSession) LocalizedTitle(ctx context.Context, link, lang string) (string, error) {
	if lang != "ar" {
		return "", nil
	}

	u := strings.Replace(link, "/en-sa/", "/ar-sa/", 1)

	body, err := s.adapter.fetcher.Get(ctx, u)
	if err != nil {
		return "", err
	}
	return stripTags(firstMatch(extraTitleRe, string(body))), nil
}

// Close implements Session.
func (s *extraSession) Close() error { return nil }
