package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets hardening headers on every response. API responses
// may carry patient data, so they are additionally marked no-store unless
// the route is public.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")

			path := c.Request().URL.Path
			if strings.HasPrefix(path, apiPrefix) && !strings.HasPrefix(path, apiPrefix+"public/") {
				h.Set("Cache-Control", "no-store")
			}
			return next(c)
		}
	}
}
