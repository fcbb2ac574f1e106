package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists routes that never need a bearer token.
var publicPaths = map[string]bool{
	"/health":              true,
	"/api/v1/auth/login":   true,
	"/api/v1/auth/refresh": true,
	"/api/v1/auth/logout":  true,
	"/api/v1/public/info":  true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
