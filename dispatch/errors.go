package dispatch

import (
	"fmt"

	"github.com/xraph/berth"
)

// MissingParameterError names the first required parameter absent from a
// call.
type MissingParameterError struct {
	Capability string
	Param      string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("capability %q: missing required parameter %q", e.Capability, e.Param)
}

// Unwrap lets callers match with errors.Is(err, berth.ErrMissingParameter).
func (e *MissingParameterError) Unwrap() error { return berth.ErrMissingParameter }
