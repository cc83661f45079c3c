package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck probes one dependency. A nil check marks the dependency as disabled.
type HealthCheck func() error

// HealthHandler reports the state of the service dependencies.
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// RegisterRoutes registers the health route with the Fiber app.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth answers 200 when every enabled dependency responds, 503 otherwise.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	for name, check := range h.checks {
		switch {
		case check == nil:
			body[name] = "disabled"
		case check() != nil:
			body[name] = "unavailable"
			body["status"] = "degraded"
			status = fiber.StatusServiceUnavailable
		default:
			body[name] = "connected"
		}
	}

	return c.Status(status).JSON(body)
}
