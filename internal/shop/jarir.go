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

const defaultJarirBaseURL = "https://www.jarir.com"

var (
	jarirTitleRe = regexp.MustCompile(`(?s)class="product-title__title[^"]*"[^>]*>(.*?)</`)
	jarirPriceRe = regexp.MustCompile(`(?s)class="price[^"]*"[^>]*>(.*?)</`)
	jarirInfoRe  = regexp.MustCompile(`(?s)class="product-title__info[^"]*"[^>]*>(.*?)</`)
	jarirLinkRe  = regexp.MustCompile(`class="product-tile__link[^"]*"[^>]*href="([^"]+)"`)
	jarirImageRe = regexp.MustCompile(`class="image--contain[^"]*"[^>]*src="([^"]+)"`)
)

// JarirAdapter probes and searches jarir.com listing pages.
type JarirAdapter struct {
	fetcher *Fetcher
	baseURL string
}

// JarirOption configures the JarirAdapter.
type JarirOption func(*JarirAdapter)

// WithJarirBaseURL overrides the store base URL, used in tests.
func WithJarirBaseURL(u string) JarirOption {
	return func(j *JarirAdapter) {
		j.baseURL = strings.TrimRight(u, "/")
	}
}

// NewJarirAdapter creates the Jarir adapter around a fetcher.
func NewJarirAdapter(fetcher *Fetcher, opts ...JarirOption) *JarirAdapter {
	j := &JarirAdapter{
		fetcher: fetcher,
		baseURL: defaultJarirBaseURL,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name implements Adapter.
func (j *JarirAdapter) Name() string { return domain.StoreJarir }

// Open implements Adapter.
func (j *JarirAdapter) Open(_ context.Context) (Session, error) {
	return &jarirSession{adapter: j}, nil
}

type jarirSession struct {
	adapter *JarirAdapter
}

// Probe classifies one product page. A page without the product title
// block means Jarir changed its markup or served an error shell, so
// the result is unknown.
func (s *jarirSession) Probe(ctx context.Context, link string) (domain.ProbeResult, error) {
	body, err := s.adapter.fetcher.Get(ctx, link)
	if errors.Is(err, ErrPageNotFound) {
		return domain.ProbeResult{Known: true, Availability: false}, nil
	}
	if err != nil {
		return domain.ProbeResult{}, err
	}

	page := string(body)
	if firstMatch(jarirTitleRe, page) == "" {
		return domain.ProbeResult{}, nil
	}

	res := domain.ProbeResult{
		Known:        true,
		Availability: !strings.Contains(page, "product-unavailable") && !strings.Contains(page, "out-of-stock"),
	}
	if raw := stripTags(firstMatch(jarirPriceRe, page)); raw != "" {
		res.Price = NormalizePrice(raw)
	}
	return res, nil
}

// Search runs one search term against the catalog search results page.
// Jarir loads additional tiles on scroll; the first page carries the
// full server-rendered set, which is what we index.
func (s *jarirSession) Search(ctx context.Context, term string) ([]domain.RawListing, error) {
	u := fmt.Sprintf(
		"%s/sa-en/catalogsearch/result?search=%s",
		s.adapter.baseURL, url.QueryEscape(term),
	)
	body, err := s.adapter.fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("jarir search: %w", err)
	}

	var listings []domain.RawListing
	seen := make(map[string]struct{})

	for _, block := range splitBlocks(string(body), `class="product-tile"`) {
		title := stripTags(firstMatch(jarirTitleRe, block))
		link := firstMatch(jarirLinkRe, block)
		if title == "" || link == "" {
			continue
		}
		if !strings.HasPrefix(link, "http") {
			link = s.adapter.baseURL + link
		}

		key := title + "|" + link
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		listing := domain.RawListing{
			Title: title,
			Link:  link,
			Info:  stripTags(firstMatch(jarirInfoRe, block)),
		}
		if raw := stripTags(firstMatch(jarirPriceRe, block)); raw != "" {
			listing.Price = NormalizePrice(raw)
		}
		if img := firstMatch(jarirImageRe, block); img != "" && !strings.Contains(img, "placeholder") {
			listing.ImageURL = CleanImageURL(img)
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

// LocalizedTitle fetches the Arabic variant of the product page. Jarir
// serves Arabic on the path without the sa-en prefix, keyed by the
// country query parameter.
func (s *jarirSession) LocalizedTitle(ctx context.Context, link, lang string) (string, error) {
	if lang != "ar" {
		return "", nil
	}

	u := strings.Replace(link, "/sa-en/", "/", 1)
	u = strings.ReplaceAll(u, "?country=sa", "")
	u += "?country=sa"

	body, err := s.adapter.fetcher.Get(ctx, u)
	if err != nil {
		return "", err
	}
	return stripTags(firstMatch(jarirTitleRe, string(body))), nil
}

// Close implements Session.
func (s *jarirSession) Close() error { return nil }
