package middleware

import (
	"github.com/gofiber/fiber/v2"
)

var removedHeaders = []string{
	"X-Powered-By",
	"Server",
	"X-AspNet-Version",
	"X-Debug-Info",
}

var standardHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
	"Cache-Control":          "no-store, no-cache, must-revalidate",
	"Pragma":                 "no-cache",
}

// The demo page uses inline script and style.
var securityHeaders = map[string]string{
	"Content-Security-Policy": "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
}

// SecurityHeaders strips server-identifying headers and sets the standard
// response hardening set on every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		for _, header := range removedHeaders {
			c.Response().Header.Del(header)
		}
		for name, value := range standardHeaders {
			c.Set(name, value)
		}
		for name, value := range securityHeaders {
			c.Set(name, value)
		}

		return err
	}
}
