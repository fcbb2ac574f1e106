package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// revocationCountResponse is the response for GET /admin/revocations.
type revocationCountResponse struct {
	Count int `json:"count"`
}

// RegisterRevocationRoutes registers token revocation inspection endpoints.
func RegisterRevocationRoutes(g *echo.Group, store *TokenRevocationStore) {
	g.GET("/admin/revocations", handleCountRevocations(store), RequirePermission(PermManageUsers))
}

func handleCountRevocations(store *TokenRevocationStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, revocationCountResponse{Count: store.Count()})
	}
}
