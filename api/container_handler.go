package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xraph/berth/container"
	"github.com/xraph/berth/pipeline"
)

// trackContainer runs one operation for a container. A failed run is
// reported as 502 with the tool result as body.
func (a *API) trackContainer(c echo.Context) error {
	op := container.OpFullInfo
	if raw := c.QueryParam("operation"); raw != "" {
		parsed, err := container.ParseOperation(raw)
		if err != nil {
			return mapError(err)
		}
		op = parsed
	}

	res, err := a.eng.Track(c.Request().Context(), c.Param("id"), op)
	if err != nil {
		return mapError(err)
	}
	if !res.OK() {
		return c.JSON(http.StatusBadGateway, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (a *API) getSnapshot(c echo.Context) error {
	snap, err := a.eng.Snapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (a *API) listContainerRuns(c echo.Context) error {
	cid, err := container.ParseID(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	opts := pipeline.ListOpts{ContainerID: cid}
	if err := echo.QueryParamsBinder(c).Int("limit", &opts.Limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts.Limit = defaultLimit(opts.Limit)

	runs, err := a.eng.Runs(c.Request().Context(), opts)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, runs)
}
