package query

import (
	"regexp"
	"strings"

	"github.com/xraph/berth/container"
)

// candidate matches 4 letters and 7 digits with optional separators, e.g.
// "ABCD1234567", "abcd 123 4567" or "ABCD-1234567".
var candidate = regexp.MustCompile(`(?i)\b[a-z]{4}[\s-]?\d{3}[\s-]?\d{4}\b`)

// FindContainerID returns the first container id mentioned in text,
// normalized.
func FindContainerID(text string) (string, bool) {
	for _, m := range candidate.FindAllString(text, -1) {
		if n := container.Normalize(m); container.IsValidID(n) {
			return n, true
		}
	}
	return "", false
}

// CacheKey returns the answer-cache key for q.
func CacheKey(q string) string {
	return "query:" + strings.ToLower(q)
}
