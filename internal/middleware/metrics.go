package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/metrics"
)

// Metrics records per-route request metrics and logs each completed request.
func Metrics(m *metrics.MetricsCollector, logger *zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		m.IncActiveRequests()
		defer m.DecActiveRequests()

		startTime := time.Now()
		err := c.Next()
		duration := time.Since(startTime)

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		size := len(c.Response().Body())
		m.ObserveRequest(c.Method(), route, strconv.Itoa(status), duration, int64(size))

		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("client_ip", c.IP()).
			Int("status_code", status).
			Dur("duration", duration).
			Int("response_size", size).
			Msg("Request completed")

		return err
	}
}
