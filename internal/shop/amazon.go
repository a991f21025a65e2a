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

const defaultAmazonBaseURL = "https://www.amazon.sa"

var (
	amazonTitleRe    = regexp.MustCompile(`(?s)id="productTitle"[^>]*>(.*?)</span>`)
	amazonOffscreen  = regexp.MustCompile(`class="a-offscreen">([^<]+)<`)
	amazonWholeRe    = regexp.MustCompile(`class="a-price-whole">([^<]+)<`)
	amazonFractionRe = regexp.MustCompile(`class="a-price-fraction">([^<]+)<`)
	amazonLinkRe     = regexp.MustCompile(`href="(/[^"]*/dp/[^"]+)"`)
	amazonResultTi   = regexp.MustCompile(`(?s)<h2[^>]*>.*?<span[^>]*>(.*?)</span>`)
	amazonImageRe    = regexp.MustCompile(`class="s-image"[^>]*src="([^"]+)"`)
)

// AmazonAdapter probes and searches amazon.sa listing pages.
type AmazonAdapter struct {
	fetcher  *Fetcher
	baseURL  string
	maxPages int
}

// AmazonOption configures the AmazonAdapter.
type AmazonOption func(*AmazonAdapter)

// WithAmazonBaseURL overrides the store base URL, used in tests.
func WithAmazonBaseURL(u string) AmazonOption {
	return func(a *AmazonAdapter) {
		a.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAmazonMaxPages limits how many result pages a search walks.
func WithAmazonMaxPages(n int) AmazonOption {
	return func(a *AmazonAdapter) {
		a.maxPages = n
	}
}

// NewAmazonAdapter creates the Amazon adapter around a fetcher.
func NewAmazonAdapter(fetcher *Fetcher, opts ...AmazonOption) *AmazonAdapter {
	a := &AmazonAdapter{
		fetcher:  fetcher,
		baseURL:  defaultAmazonBaseURL,
		maxPages: 5,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements Adapter.
func (a *AmazonAdapter) Name() string { return domain.StoreAmazon }

// Open implements Adapter.
func (a *AmazonAdapter) Open(_ context.Context) (Session, error) {
	return &amazonSession{adapter: a}, nil
}

type amazonSession struct {
	adapter *AmazonAdapter
}

// Probe classifies one product page. Amazon serves a robot-check
// interstitial under load; that page tells us nothing about the
// listing, so the result is marked unknown rather than unavailable.
func (s *amazonSession) Probe(ctx context.Context, link string) (domain.ProbeResult, error) {
	body, err := s.adapter.fetcher.Get(ctx, link)
	if errors.Is(err, ErrPageNotFound) {
		return domain.ProbeResult{Known: true, Availability: false}, nil
	}
	if err != nil {
		return domain.ProbeResult{}, err
	}

	page := string(body)
	if strings.Contains(page, "Robot Check") ||
		strings.Contains(page, "api-services-support@amazon.com") {
		return domain.ProbeResult{}, nil
	}
	if firstMatch(amazonTitleRe, page) == "" {
		return domain.ProbeResult{}, nil
	}

	res := domain.ProbeResult{
		Known:        true,
		Availability: !strings.Contains(page, "Currently unavailable"),
	}
	if raw := firstMatch(amazonOffscreen, page); raw != "" {
		res.Price = NormalizePrice(raw)
	} else if whole := firstMatch(amazonWholeRe, page); whole != "" {
		fraction := firstMatch(amazonFractionRe, page)
		res.Price = NormalizePrice(whole + "." + fraction)
	}
	return res, nil
}

// Search walks paginated search results for one term.
func (s *amazonSession) Search(ctx context.Context, term string) ([]domain.RawListing, error) {
	var listings []domain.RawListing
	seen := make(map[string]struct{})

	for page := 1; page <= s.adapter.maxPages; page++ {
		u := fmt.Sprintf(
			"%s/s?k=%s&language=en_AE&page=%d",
			s.adapter.baseURL, url.QueryEscape(term), page,
		)
		body, err := s.adapter.fetcher.Get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("amazon search page %d: %w", page, err)
		}

		doc := string(body)
		for _, block := range splitBlocks(doc, `data-component-type="s-search-result"`) {
			listing, ok := s.parseResult(block)
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

		if !strings.Contains(doc, "s-pagination-next") ||
			strings.Contains(doc, "s-pagination-disabled") {
			break
		}
	}

	return listings, nil
}

func (s *amazonSession) parseResult(block string) (domain.RawListing, bool) {
	title := stripTags(firstMatch(amazonResultTi, block))
	link := firstMatch(amazonLinkRe, block)
	if title == "" || link == "" {
		return domain.RawListing{}, false
	}

	listing := domain.RawListing{
		Title:    title,
		Link:     s.adapter.baseURL + link,
		ImageURL: CleanImageURL(firstMatch(amazonImageRe, block)),
	}
	if whole := firstMatch(amazonWholeRe, block); whole != "" {
		fraction := firstMatch(amazonFractionRe, block)
		listing.Price = NormalizePrice(whole + "." + fraction)
	}
	return listing, true
}

// LocalizedTitle fetches the product page with the language query
// parameter Amazon uses for its Gulf storefronts.
func (s *amazonSession) LocalizedTitle(ctx context.Context, link, lang string) (string, error) {
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	u := link + sep + "language=" + url.QueryEscape(lang+"_AE")

	body, err := s.adapter.fetcher.Get(ctx, u)
	if err != nil {
		return "", err
	}
	return stripTags(firstMatch(amazonTitleRe, string(body))), nil
}

// Close implements Session.
func (s *amazonSession) Close() error { return nil }
