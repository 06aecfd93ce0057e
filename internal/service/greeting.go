// Package service holds the response logic behind the public endpoints.
// Every function here is pure: it reads nothing but its arguments and
// returns the same Response for the same input, so handlers may call them
// from any number of goroutines.
package service

import (
	"fmt"
	"net/http"
)

const (
	HelloMessage   = "Hello Jenkins CI/CD!"
	HealthMessage  = "Application is running successfully!"
	RootMessage    = "🚀 Hello from Jenkins CI/CD Pipeline!"
	APITestMessage = "✅ API working perfectly!"

	// GuestName replaces a missing or empty name in GreetUser.
	GuestName = "Guest"

	greetFormat = "Hello %s! Welcome to our CI/CD pipeline!"
)

// Response is a status code plus a plain-text body.
type Response struct {
	Status int
	Body   string
}

func ok(body string) Response { return Response{Status: http.StatusOK, Body: body} }

// SayHello backs GET /api/v1/hello.
func SayHello() Response { return ok(HelloMessage) }

// HealthCheck backs GET /api/v1/health.
func HealthCheck() Response { return ok(HealthMessage) }

// GreetUser backs GET /api/v1/greet. An empty name is treated the same as an
// absent one and becomes GuestName. Any other value is used verbatim.
func GreetUser(name string) Response {
	if name == "" {
		name = GuestName
	}
	return ok(fmt.Sprintf(greetFormat, name))
}

// RootHello backs GET /.
func RootHello() Response { return ok(RootMessage) }

// APITest backs GET /api/test.
func APITest() Response { return ok(APITestMessage) }
