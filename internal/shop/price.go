package shop

import (
	"regexp"
	"strconv"
	"strings"
)

var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// NormalizePrice extracts a numeric price from raw display text such as
// "SAR 3,499.00" or multi-line currency fragments. Returns nil when no
// number survives the cleanup, which callers treat as "no price shown".
func NormalizePrice(raw string) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\n", ""))
	cleaned = nonPriceChars.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	if cleaned == "" {
		return nil
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// CleanImageURL repairs the image URL variants the stores serve:
// protocol-relative URLs, doubled slashes, low-resolution "100_00"
// thumbnails, and trailing locale or format query noise.
func CleanImageURL(imageURL string) string {
	if strings.HasPrefix(imageURL, "/") {
		imageURL = "https:" + imageURL
	}

	imageURL = strings.ReplaceAll(imageURL, "////", "//")

	imageURL = strings.ReplaceAll(imageURL, "100_00", "100_01")

	if idx := strings.Index(imageURL, "?locale="); idx >= 0 {
		imageURL = imageURL[:idx] + "?locale=en-GB,en-"
	} else if idx := strings.Index(imageURL, "&amp;fmt="); idx >= 0 {
		if amp := strings.Index(imageURL, "&amp;"); amp >= 0 {
			imageURL = imageURL[:amp]
		}
	}

	return imageURL
}
