package sanitize

import (
	"regexp"
	"strings"
)

var fenced = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\r?\\n?(.*?)```")

// locate returns the text most likely to hold the JSON object: the
// interior of the first fenced block, else the first brace-delimited
// substring, else the trimmed input.
func locate(raw string) string {
	if m := fenced.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if obj, ok := braces(raw); ok {
		return obj
	}
	return strings.TrimSpace(raw)
}

// braces returns the first '{' ... matching '}' substring of s, skipping
// braces inside JSON strings. When the object never closes it falls back
// to the last '}' in s.
func braces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1], true
	}
	return "", false
}
