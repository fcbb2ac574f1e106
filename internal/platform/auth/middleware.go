package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorKey).(*Actor)
	return actor
}

// UserIDFromContext returns the actor's ID, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if a := ActorFromContext(ctx); a != nil {
		return a.ID
	}
	return ""
}

// AuthenticateConfig configures Authenticate.
type AuthenticateConfig struct {
	Issuer *TokenIssuer
	// DevMode gives requests without an Authorization header a built-in
	// admin actor. Requests that do send a token are still verified.
	DevMode bool
	Skipper func(echo.Context) bool
}

// DevActor is the actor used for anonymous requests in development mode.
var DevActor = NewActor("dev-user", "dev", RoleAdmin)

// Authenticate resolves the request actor from a bearer access token.
// A missing header leaves the request unauthenticated so the permission
// gate can answer 401; a malformed or invalid token is rejected here.
func Authenticate(cfg AuthenticateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if cfg.DevMode {
					setActor(c, DevActor)
				}
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Issuer.Parse(parts[1], TokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			setActor(c, ActorFromClaims(claims))
			return next(c)
		}
	}
}

func setActor(c echo.Context, actor *Actor) {
	c.Set("user_id", actor.ID)
	c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
}
