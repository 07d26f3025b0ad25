package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness along with the state of each named
// dependency. Identity store failures make the service unhealthy; the
// revocation store is reported but, being optional, does not.
type HealthHandler struct {
	Required map[string]Pinger
	Optional map[string]Pinger
}

const healthTimeout = 2 * time.Second

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, p := range h.Required {
		if err := p.PingContext(ctx); err != nil {
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	for name, p := range h.Optional {
		if err := p.PingContext(ctx); err != nil {
			checks[name] = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	return c.JSON(status, echo.Map{"status": state, "checks": checks})
}
