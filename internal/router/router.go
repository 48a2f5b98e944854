package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/locker-registry/internal/handler" // import the handlers that implement the locker operations
)

// RegisterRoutes registers routes that do not touch the registry on the
// provided Echo instance.  Currently it exposes only a health check, which
// reports degraded when the locker routes are unavailable.
func RegisterRoutes(e *echo.Echo, degraded bool) {
	if degraded {
		e.GET("/healthz", handler.Degraded)
		return
	}
	e.GET("/healthz", handler.Health)
}

// RegisterLockers registers the locker registry API under /v1.
func RegisterLockers(e *echo.Echo, h *handler.LockerHandler) {
	g := e.Group("/v1")

	// ---- Lockers ----
	g.GET("/lockers", h.List)
	g.GET("/lockers/summary", h.Summary)
	g.GET("/lockers/export", h.Export) // static segments win over :id
	g.GET("/lockers/:id", h.Get)
	g.POST("/lockers/:id/allocate", h.Allocate)
	g.POST("/lockers/:id/release", h.Release)

	// ---- Locations ----
	g.GET("/locations", h.Locations)
	g.GET("/locations/:location/lockers/:number", h.GetByNumber)
}

// RegisterUnavailable answers every /v1 route with 503 and the expected
// catalog layout.  Used when the catalog cannot be loaded.
func RegisterUnavailable(e *echo.Echo, cause error) {
	e.Any("/v1/*", handler.Unavailable(cause))
}
