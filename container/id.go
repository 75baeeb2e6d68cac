package container

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xraph/berth"
)

// idPattern is the ISO 6346 shape used by the terminal: four owner/category
// letters followed by six serial digits and a check digit.
var idPattern = regexp.MustCompile(`^[A-Z]{4}\d{7}$`)

// ValidationError reports caller input that can never succeed. It is
// returned synchronously and never retried.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, berth.ErrInvalidContainerID).
func (e *ValidationError) Unwrap() error {
	if e.Field == "operation" {
		return berth.ErrInvalidOperation
	}
	return berth.ErrInvalidContainerID
}

// Normalize strips spaces and dashes and upper-cases s. It does not
// validate the result.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	return strings.ToUpper(s)
}

// IsValidID reports whether s is already a normalized container number.
func IsValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ParseID normalizes raw and validates it against the container-number
// pattern.
func ParseID(raw string) (string, error) {
	n := Normalize(raw)
	if n == "" {
		return "", &ValidationError{Field: "container_id", Value: raw, Reason: "empty"}
	}
	if !IsValidID(n) {
		return "", &ValidationError{Field: "container_id", Value: raw, Reason: "expected 4 letters followed by 7 digits"}
	}
	return n, nil
}
