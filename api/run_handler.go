package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xraph/berth/id"
	"github.com/xraph/berth/pipeline"
)

func (a *API) listRuns(c echo.Context) error {
	var opts pipeline.ListOpts
	if err := echo.QueryParamsBinder(c).
		String("container_id", &opts.ContainerID).
		Int("limit", &opts.Limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts.Limit = defaultLimit(opts.Limit)

	runs, err := a.eng.Runs(c.Request().Context(), opts)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, runs)
}

func (a *API) getRun(c echo.Context) error {
	wfID, err := id.ParseWorkflowID(c.Param("workflowId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid workflow ID: %v", err))
	}

	run, err := a.eng.Run(c.Request().Context(), wfID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, run)
}
