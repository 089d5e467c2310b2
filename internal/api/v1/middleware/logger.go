// Package middleware provides fiber middleware for the sandbox job service
package middleware

import (
	"time"

	log "github.com/upgrowplan/upgrowplan/internal/logger"

	fiber "github.com/gofiber/fiber/v2"
)

// Logger returns a middleware that logs HTTP requests
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)

		fields := map[string]interface{}{
			"status":  c.Response().StatusCode(),
			"latency": latency.String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		}
		if err != nil {
			fields["error"] = err.Error()
			log.WarnWithFields("Request", fields)
			return err
		}

		log.DebugWithFields("Request", fields)
		return nil
	}
}
