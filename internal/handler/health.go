package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/locker-registry/internal/catalog"
)

// Health is a simple health‑check endpoint used by monitoring systems to
// verify that the service is running.  It returns a plain text "ok"
// message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Degraded returns a health check reporting 503 "degraded", used when the
// service is up but cannot serve lockers.
func Degraded(c echo.Context) error {
	return c.String(http.StatusServiceUnavailable, "degraded")
}

// Unavailable returns a handler answering 503 with cause and the expected
// catalog layout.  It stands in for every locker route when the catalog
// cannot be used, so operators get guidance instead of a crash.
func Unavailable(cause error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error":           cause.Error(),
			"expected_schema": catalog.ExpectedSchema,
		})
	}
}
