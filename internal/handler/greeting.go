package handler // declare the package name; contains HTTP handlers

import (
	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/jenkins-cicd-demo/internal/service" // pure response logic
)

// write renders a service response as plain text.
func write(c echo.Context, res service.Response) error {
	return c.String(res.Status, res.Body)
}

// SayHello handles GET /api/v1/hello.
func SayHello(c echo.Context) error { return write(c, service.SayHello()) }

// HealthCheck handles GET /api/v1/health.  It is the human-readable status
// line; orchestrators should use /healthz or /readyz instead.
func HealthCheck(c echo.Context) error { return write(c, service.HealthCheck()) }

// GreetUser handles GET /api/v1/greet.  The optional ?name= query parameter
// is passed through untouched; an absent or empty value greets the guest.
func GreetUser(c echo.Context) error {
	return write(c, service.GreetUser(c.QueryParam("name")))
}

// RootHello handles GET /.
func RootHello(c echo.Context) error { return write(c, service.RootHello()) }

// APITest handles GET /api/test.
func APITest(c echo.Context) error { return write(c, service.APITest()) }
