package router // package router defines how HTTP routes are registered for the service

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/jenkins-cicd-demo/internal/handler" // handlers for every endpoint
)

// RegisterRoutes registers the health endpoints.  They bypass rate limiting
// and caching so orchestrators always see the live state.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/health", h.Status)
	e.GET("/readyz", h.Ready)
}

// RegisterAPI registers the canonical /api/v1 endpoints.  The given
// middleware (rate limiting, caching) applies to this group only.
func RegisterAPI(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/v1", mw...)
	g.GET("/hello", handler.SayHello)
	g.GET("/health", handler.HealthCheck)
	g.GET("/greet", handler.GreetUser)
}

// RegisterLegacy registers "/" and "/api/test", the routes of the older
// pipeline variant.  Their paths do not overlap with /api/v1 so both sets
// can be served side by side.
func RegisterLegacy(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/", handler.RootHello, mw...)
	e.GET("/api/test", handler.APITest, mw...)
}
