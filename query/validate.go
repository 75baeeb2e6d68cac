package query

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/berth"
)

// MaxLength is the longest accepted query, in characters.
const MaxLength = 500

var suspicious = []string{"<script", "javascript:", "onclick="}

// Input is the validated shape of an inbound query.
type Input struct {
	Query string `json:"query" validate:"required,max=500,no_xss"`
}

// ValidationError describes why a query was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid query: " + e.Reason }

func (e *ValidationError) Unwrap() error { return berth.ErrInvalidQuery }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("no_xss", func(fl validator.FieldLevel) bool {
			return !HasSuspiciousContent(fl.Field().String())
		})
	})
	return validate
}

// HasSuspiciousContent reports whether s contains script-injection markers.
func HasSuspiciousContent(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range suspicious {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Validate trims q and checks it is non-empty, at most MaxLength
// characters and free of script markers. It returns the trimmed query.
func Validate(q string) (string, error) {
	in := Input{Query: strings.TrimSpace(q)}
	if err := validatorInstance().Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", &ValidationError{Reason: reason(verrs[0])}
		}
		return "", &ValidationError{Reason: err.Error()}
	}
	return in.Query, nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "query cannot be empty"
	case "max":
		return fmt.Sprintf("query too long (max %d characters)", MaxLength)
	case "no_xss":
		return "query contains invalid characters"
	default:
		return fe.Error()
	}
}
