package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"-"`
}

// NewActor builds an actor whose permissions derive from role.
func NewActor(id, username string, role Role) *Actor {
	return &Actor{
		ID:          id,
		Username:    username,
		Role:        role,
		Permissions: PermissionsForRole(role),
	}
}

// HasPermission reports whether the actor holds p.
func HasPermission(actor *Actor, p Permission) bool {
	if actor == nil {
		return false
	}
	return actor.Permissions.Has(p)
}

// HasRole reports whether the actor's role is one of roles.
func HasRole(actor *Actor, roles ...Role) bool {
	if actor == nil {
		return false
	}
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// Requirement describes what a protected operation needs. Zero fields are
// not checked.
type Requirement struct {
	Roles      []Role
	Permission Permission
}

func (r Requirement) String() string {
	var parts []string
	if len(r.Roles) > 0 {
		names := make([]string, len(r.Roles))
		for i, role := range r.Roles {
			names[i] = string(role)
		}
		parts = append(parts, "role: "+strings.Join(names, " or "))
	}
	if r.Permission != "" {
		parts = append(parts, "permission: "+string(r.Permission))
	}
	return strings.Join(parts, ", ")
}

// Decision is the outcome of evaluating a Requirement.
type Decision int

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Err maps the decision to the shared error taxonomy.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Unauthenticated:
		return apperr.ErrUnauthenticated
	default:
		return apperr.ErrForbidden
	}
}

// Evaluate applies the guard: no actor, then role, then permission.
func Evaluate(actor *Actor, req Requirement) Decision {
	if actor == nil {
		return Unauthenticated
	}
	if len(req.Roles) > 0 && !HasRole(actor, req.Roles...) {
		return Forbidden
	}
	if req.Permission != "" && !HasPermission(actor, req.Permission) {
		return Forbidden
	}
	return Allowed
}

// Require returns middleware that rejects requests whose actor does not
// satisfy req: 401 when unauthenticated, 403 when denied.
func Require(req Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c.Request().Context())
			switch Evaluate(actor, req) {
			case Allowed:
				return next(c)
			case Unauthenticated:
				return echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrUnauthenticated.Error())
			default:
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("required %s", req))
			}
		}
	}
}

// RequirePermission returns middleware that checks for a single permission.
func RequirePermission(p Permission) echo.MiddlewareFunc {
	return Require(Requirement{Permission: p})
}

// RequireRole returns middleware that checks the actor holds one of roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return Require(Requirement{Roles: roles})
}
