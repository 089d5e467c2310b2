// Package app assembles the sandbox job service
package app

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/upgrowplan/upgrowplan/internal/api/v1/handlers"
	"github.com/upgrowplan/upgrowplan/internal/api/v1/middleware"
	"github.com/upgrowplan/upgrowplan/internal/sandbox"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/routes"
)

// NewApp creates the fiber app serving jobs from store
func NewApp(store *sandbox.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "upgrowplan-sandbox",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(middleware.Logger())

	routes.RegisterRoutes(app, handlers.NewJobHandler(store))

	return app
}

// errorHandler renders fiber errors, e.g. unmatched routes, in the job service error shape
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	slug := handlers.SlugServerError
	if code == fiber.StatusNotFound {
		slug = handlers.SlugNotFound
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   slug,
		"message": err.Error(),
		"status":  code,
	})
}
