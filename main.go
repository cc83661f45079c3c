package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"productapi/internal/config"
	"productapi/internal/database"
	"productapi/internal/handlers"
	"productapi/internal/metrics"
	"productapi/internal/repositories"
	"productapi/internal/server"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"
)

// store is what the service needs from a persistence backend.
type store interface {
	repositories.ProductRepository
	repositories.SessionFactory
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	healthChecks := map[string]handlers.HealthCheck{}

	// --- Initialize Repository ---
	repo, dbCheck, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeStore()
	healthChecks["database"] = dbCheck

	// --- Initialize RabbitMQ Client ---
	var publisher services.EventPublisher
	healthChecks["events"] = nil
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient
		healthChecks["events"] = func() error {
			if !mqClient.Connected() {
				return amqp.ErrClosed
			}
			return nil
		}

		// Event-log sink: drain the product_events queue into the process log.
		err = mqClient.Consume(func(msg amqp.Delivery) error {
			log.Printf("Product event %s (tag %d): %s", msg.RoutingKey, msg.DeliveryTag, msg.Body)
			return nil
		})
		if err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// --- Initialize Service and App ---
	productService := services.NewProductService(repo, repo, publisher, metrics.New(registry))
	app := server.NewApp(server.Dependencies{
		ProductService: productService,
		StrictStatus:   cfg.StrictStatus(),
		Gatherer:       registry,
		HealthChecks:   healthChecks,
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s (status mode: %s)", cfg.AppPort, cfg.StatusMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// openStore picks the persistence backend named by the configuration. The
// returned health check is nil for the in-memory backend.
func openStore(cfg config.Config) (store, handlers.HealthCheck, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		return repositories.NewMockProductRepository(), nil, func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.DBLogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	return repositories.NewGORMProductRepository(db), func() error { return database.Ping(db) }, closeDB, nil
}
