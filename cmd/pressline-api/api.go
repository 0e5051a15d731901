// Package main provides the Pressline API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pressline/pressline/pkg/dispatcher"
	"github.com/pressline/pressline/pkg/persistence"
	"github.com/pressline/pressline/pkg/registry"
	"github.com/pressline/pressline/pkg/web"
)

type API struct {
	logger      *slog.Logger
	dispatcher  *dispatcher.Dispatcher
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	d *dispatcher.Dispatcher,
	store persistence.Persistence,
	reg *registry.Registry,
) *API {
	return &API{
		logger:      log,
		dispatcher:  d,
		persistence: store,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.dispatcher, a.persistence, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pressline API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SubmitWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	app.Get("/platforms", handlers.GetPlatforms)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
