package shop

import (
	"html"
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// firstMatch returns the first capture group of re in body, trimmed,
// or "" when there is no match.
func firstMatch(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// stripTags flattens an HTML fragment to its text content and decodes
// entities. Good enough for titles and price fragments; full documents
// never go through here.
func stripTags(fragment string) string {
	text := tagRe.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// splitBlocks cuts body into chunks starting at each occurrence of
// marker. The text before the first marker is dropped.
func splitBlocks(body, marker string) []string {
	parts := strings.Split(body, marker)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}
