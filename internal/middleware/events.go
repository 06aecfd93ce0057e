package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jenkins-cicd-demo/internal/queue"
)

// EventSink accepts served-request events without blocking.
type EventSink interface {
	Enqueue(ev queue.RequestServedEvent) bool
}

// PublishServed reports every request to sink once the handler returns.  The
// response is never altered; a full sink just loses the event.
func PublishServed(sink EventSink) echo.MiddlewareFunc {
	if sink == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			ev := queue.RequestServedEvent{
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
				Method:    req.Method,
				Route:     c.Path(),
				URI:       req.RequestURI,
				Status:    statusOf(c, err),
				LatencyMs: time.Since(start).Milliseconds(),
				RemoteIP:  c.RealIP(),
				ServedAt:  start.UTC().Format(time.RFC3339Nano),
			}
			if ev.URI == "" {
				ev.URI = req.URL.RequestURI()
			}
			if !sink.Enqueue(ev) {
				c.Logger().Debugf("[events] dropped %s %s", ev.Method, ev.URI)
			}
			return err
		}
	}
}

// statusOf returns the status the client will see.  When the handler
// returned an error the response is not committed yet and Echo's error
// handler will derive the code from err.
func statusOf(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
