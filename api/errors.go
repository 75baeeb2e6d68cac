package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xraph/berth"
)

// mapError converts berth sentinel errors to echo HTTP errors. Anything
// unrecognized is returned as is and becomes a 500.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isBadRequest(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case isNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}

func isBadRequest(err error) bool {
	return errors.Is(err, berth.ErrInvalidQuery) ||
		errors.Is(err, berth.ErrInvalidContainerID) ||
		errors.Is(err, berth.ErrInvalidOperation) ||
		errors.Is(err, berth.ErrMissingParameter) ||
		errors.Is(err, berth.ErrNoContainerID)
}

func isNotFound(err error) bool {
	return errors.Is(err, berth.ErrCapabilityNotFound) ||
		errors.Is(err, berth.ErrRecordNotFound) ||
		errors.Is(err, berth.ErrRunNotFound) ||
		errors.Is(err, berth.ErrRawDocumentNotFound)
}
