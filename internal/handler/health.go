package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// Check tests one dependency.  A nil error means the dependency is usable.
type Check func(ctx context.Context) error

// Counter reads a running total, such as events dropped by the publisher.
type Counter func() uint64

// HealthHandler serves the health endpoints.  Version and BuildDate are
// stamped at build time; Checks lists the optional dependencies that were
// configured at startup and may be empty.
type HealthHandler struct {
	Version   string
	BuildDate string
	Env       string
	Checks    map[string]Check
	Counters  map[string]Counter
	Timeout   time.Duration
}

// NewHealthHandler returns a handler with no dependency checks.  Use
// AddCheck to register them.
func NewHealthHandler(version, buildDate, env string) *HealthHandler {
	return &HealthHandler{
		Version:   version,
		BuildDate: buildDate,
		Env:       env,
		Checks:    map[string]Check{},
		Counters:  map[string]Counter{},
		Timeout:   2 * time.Second,
	}
}

// AddCheck registers a readiness check under name.
func (h *HealthHandler) AddCheck(name string, check Check) {
	h.Checks[name] = check
}

// AddCounter publishes a running total under name in the /health document.
func (h *HealthHandler) AddCounter(name string, counter Counter) {
	h.Counters[name] = counter
}

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the process is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type statusResp struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	BuildDate string            `json:"build_date"`
	Env       string            `json:"env"`
	Counters  map[string]uint64 `json:"counters,omitempty"`
}

// Status handles GET /health with a small JSON document describing the build.
func (h *HealthHandler) Status(c echo.Context) error {
	resp := statusResp{
		Status:    "healthy",
		Version:   h.Version,
		BuildDate: h.BuildDate,
		Env:       h.Env,
	}
	if len(h.Counters) > 0 {
		resp.Counters = make(map[string]uint64, len(h.Counters))
		for name, read := range h.Counters {
			resp.Counters[name] = read()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type readyResp struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready handles GET /readyz.  Every registered check runs under a shared
// timeout; any failure turns the response into a 503 so orchestrators stop
// routing traffic to this instance.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := readyResp{Status: "ready", Checks: make(map[string]string, len(names))}
	code := http.StatusOK
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			c.Logger().Warnf("[readyz] %s: %v", name, err)
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(code, resp)
}
