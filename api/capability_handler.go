package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *API) listCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, CapabilitiesResponse{Capabilities: a.eng.Catalogue()})
}

func (a *API) getCapability(c echo.Context) error {
	md, err := a.eng.Describe(c.Param("name"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, md)
}

func (a *API) health(c echo.Context) error {
	if err := a.eng.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
