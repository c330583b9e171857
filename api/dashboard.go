package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func dashboardStats(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := tasks.DashboardStats(c.Request().Context(), principal(c).ID)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, stats)
	}
}
