package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskhive/config"
)

const (
	corsMethods = "GET,POST,PUT,DELETE,PATCH,OPTIONS"
	corsHeaders = "Origin,Content-Type,Accept,Authorization,X-Requested-With"
	corsMaxAge  = 3600
)

// CORS allows browser clients from the configured origins. Credentialed
// requests require echoing the origin back, never a wildcard.
func CORS() fiber.Handler {
	allowed := make(map[string]struct{})
	for _, origin := range config.AppConfig.AllowedOrigins {
		allowed[strings.TrimSpace(origin)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if _, ok := allowed[origin]; ok {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", corsMethods)
			c.Set("Access-Control-Allow-Headers", corsHeaders)
			c.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
