package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/query"
)

func (a *API) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	ans, err := a.eng.Answer(c.Request().Context(), req.Query)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ans)
}

// queryStream answers a query as newline-delimited JSON: one progress
// event per pipeline stage, then the answer.
func (a *API) queryStream(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	ans, err := a.eng.AnswerStream(c.Request().Context(), req.Query, func(p agent.Progress) {
		_ = enc.Encode(StreamEvent{Progress: &p})
		res.Flush()
	})
	if err != nil {
		_ = enc.Encode(StreamEvent{Error: err.Error()})
		res.Flush()
		return nil
	}
	if err := enc.Encode(StreamEvent{Answer: ans}); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func (a *API) listQueries(c echo.Context) error {
	var opts query.LogOpts
	if err := echo.QueryParamsBinder(c).
		String("container_id", &opts.ContainerID).
		Int("limit", &opts.Limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts.Limit = defaultLimit(opts.Limit)

	logs, err := a.eng.QueryLogs(c.Request().Context(), opts)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, logs)
}
