// Package dedupe computes the stable identity of an alert. The key is
// derived from company, trigger, published date and normalized title only,
// so the same event reported by two providers with different URLs collapses
// to a single alert.
package dedupe

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

const unknownDate = "unknown"

var datePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// timestamp layouts accepted for published_at values, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Key builds the dedupe key for a (company, trigger, article) correlation.
// It is also used to reconstruct keys for persisted legacy alert rows that
// predate the stored dedupe_key column.
func Key(companyID, triggerID, publishedAt, title string) string {
	return companyID + "|" + triggerID + "|" + PublishedDate(publishedAt) + "|" + NormalizeTitle(title)
}

// NormalizeTitle lowercases the title, replaces every non-alphanumeric,
// non-space rune with a space and collapses whitespace.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}
	lowered := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// PublishedDate normalizes an ISO-8601 timestamp to its UTC date component.
// A trailing Z is treated as a UTC offset and a timestamp without offset is
// assumed to already be UTC. When parsing fails the first ten characters are
// used if they form YYYY-MM-DD, otherwise the "unknown" sentinel.
func PublishedDate(publishedAt string) string {
	value := strings.TrimSpace(publishedAt)
	if value == "" {
		return unknownDate
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return parsed.UTC().Format("2006-01-02")
	}

	if len(value) >= 10 {
		candidate := value[:10]
		if datePrefixRe.MatchString(candidate) {
			return candidate
		}
	}
	return unknownDate
}
