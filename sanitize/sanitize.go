package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/berth/container"
)

// NoData is the message of an error record built from empty input.
const NoData = "no data available"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("container_id", func(fl validator.FieldLevel) bool {
			return container.IsValidID(container.Normalize(fl.Field().String()))
		})
	})
	return validate
}

// Sanitize decodes raw into a Record. It never fails; see the package doc.
func Sanitize(raw string) *container.Record {
	text := locate(raw)
	if text == "" {
		return Failure(raw, "empty response")
	}

	rec, err := decode(text)
	if err != nil {
		return Failure(raw, err.Error())
	}

	Complete(rec)
	return rec
}

// Failure builds an error record. Message is the trimmed raw text, or
// NoData when raw is blank.
func Failure(raw, reason string) *container.Record {
	msg := strings.TrimSpace(raw)
	if msg == "" {
		msg = NoData
	}
	return &container.Record{
		Message:      msg,
		DataSource:   container.DataSource,
		HasErrors:    true,
		ErrorMessage: container.Ptr(reason),
	}
}

func decode(text string) (*container.Record, error) {
	if !strings.HasPrefix(text, "{") {
		return nil, errors.New("response is not a JSON object")
	}

	var rec container.Record
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if err := validatorInstance().Struct(&rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid field %s: failed %q", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("validate response: %w", err)
	}
	return &rec, nil
}

// Complete normalizes a decoded record in place: it closes the
// has_errors/error_message pair, normalizes the container id, defaults
// the data source and synthesizes Message when it is empty.
func Complete(r *container.Record) {
	if r.ErrorMessage != nil && strings.TrimSpace(*r.ErrorMessage) == "" {
		r.ErrorMessage = nil
	}
	switch {
	case r.HasErrors && r.ErrorMessage == nil:
		r.ErrorMessage = container.Ptr("unspecified error")
	case !r.HasErrors && r.ErrorMessage != nil:
		r.HasErrors = true
	}

	if r.ContainerID != nil {
		if n := container.Normalize(*r.ContainerID); n != "" {
			r.ContainerID = &n
		} else {
			r.ContainerID = nil
		}
	}
	if r.DataSource == "" {
		r.DataSource = container.DataSource
	}

	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		r.Message = DefaultMessage(r)
	}
}
