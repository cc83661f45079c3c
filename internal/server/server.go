package server

import (
	"io"

	"productapi/internal/handlers"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the components the HTTP app is built from.
type Dependencies struct {
	ProductService *services.ProductService
	// StrictStatus answers client errors with 400/404 instead of 200.
	StrictStatus bool
	// Gatherer backs /metrics. The route is skipped when nil.
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]handlers.HealthCheck
	// LogOutput receives request logs. Defaults to stdout.
	LogOutput io.Writer
}

// NewApp builds the Fiber app with middleware and every route registered.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "productapi",
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	loggerConfig := logger.Config{}
	if deps.LogOutput != nil {
		loggerConfig.Output = deps.LogOutput
	}
	app.Use(logger.New(loggerConfig))

	// --- Routes ---
	handlers.NewProductHandler(deps.ProductService, deps.StrictStatus).RegisterRoutes(app)
	handlers.NewHealthHandler(deps.HealthChecks).RegisterRoutes(app)

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return app
}
