package capability

import (
	"fmt"

	"github.com/xraph/berth"
)

// NotFoundError reports an unregistered capability name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("capability %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return berth.ErrCapabilityNotFound }

// DuplicateError reports a different descriptor under a registered name.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("capability %q already registered with a different definition", e.Name)
}

func (e *DuplicateError) Unwrap() error { return berth.ErrDuplicateCapability }
