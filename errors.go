package berth

import "errors"

var (
	// Capability errors.
	ErrCapabilityNotFound  = errors.New("berth: capability not found")
	ErrDuplicateCapability = errors.New("berth: duplicate capability")
	ErrMissingParameter    = errors.New("berth: missing required parameter")

	// Input errors.
	ErrInvalidContainerID = errors.New("berth: invalid container id")
	ErrInvalidOperation   = errors.New("berth: invalid operation")
	ErrInvalidQuery       = errors.New("berth: invalid query")
	ErrNoContainerID      = errors.New("berth: no container id in query")

	// Not found errors.
	ErrRawDocumentNotFound = errors.New("berth: raw document not found")
	ErrRecordNotFound      = errors.New("berth: record not found")
	ErrRunNotFound         = errors.New("berth: run not found")

	// Collaborator errors.
	ErrReasonerUnavailable = errors.New("berth: reasoner unavailable")
	ErrSessionClosed       = errors.New("berth: session closed")
	ErrMigrationFailed     = errors.New("berth: migration failed")
)
