package settings

import (
	"context"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/cache"
)

// ManagedCache is the administrative view of a cache.
type ManagedCache interface {
	Stats() cache.Stats
	InvalidatePattern(pattern string) int
	Clear()
}

// UserAdmin lists staff accounts and changes their roles.
type UserAdmin interface {
	ListUsers(ctx context.Context) ([]*staff.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role auth.Role) (*staff.User, error)
}

type Handler struct {
	svc     *Service
	users   UserAdmin
	caches  map[string]ManagedCache
	version string
}

// NewHandler creates the admin handler. caches is keyed by a short name
// shown in the stats output.
func NewHandler(svc *Service, users UserAdmin, caches map[string]ManagedCache, version string) *Handler {
	return &Handler{svc: svc, users: users, caches: caches, version: version}
}

// RegisterRoutes registers the admin routes on api and the public info
// route on public.
func (h *Handler) RegisterRoutes(api, public *echo.Group) {
	settingsPerm := auth.RequirePermission(auth.PermManageSettings)
	usersPerm := auth.RequirePermission(auth.PermManageUsers)

	admin := api.Group("/admin")
	admin.GET("/settings", h.GetSettings, settingsPerm)
	admin.PUT("/settings", h.UpdateSettings, settingsPerm)
	admin.GET("/users", h.ListUsers, usersPerm)
	admin.PUT("/users/:id/role", h.SetRole, auth.Require(auth.Requirement{
		Roles:      []auth.Role{auth.RoleAdmin},
		Permission: auth.PermManageUsers,
	}))
	admin.GET("/roles", h.ListRoles, usersPerm)
	admin.GET("/cache/stats", h.CacheStats, settingsPerm)
	admin.DELETE("/cache", h.InvalidateCache, settingsPerm)

	public.GET("/info", h.PublicInfo)
}

func (h *Handler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Get())
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var next Settings
	if err := c.Bind(&next); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.svc.Update(next, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// SetRole changes another user's role. Callers cannot change their own.
func (h *Handler) SetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if auth.UserIDFromContext(c.Request().Context()) == id.String() {
		return echo.NewHTTPError(http.StatusConflict, "cannot change your own role")
	}
	var req RoleChange
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.users.SetRole(c.Request().Context(), id, auth.Role(req.Role))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListRoles(c echo.Context) error {
	table := auth.RoleTable()
	roles := make([]RoleInfo, 0, len(auth.AllRoles))
	for _, role := range auth.AllRoles {
		perms := make([]string, 0, len(table[role]))
		for _, p := range table[role] {
			perms = append(perms, string(p))
		}
		sort.Strings(perms)
		roles = append(roles, RoleInfo{Role: string(role), Permissions: perms})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"roles": roles})
}

func (h *Handler) CacheStats(c echo.Context) error {
	stats := make(map[string]cache.Stats, len(h.caches))
	for name, mc := range h.caches {
		stats[name] = mc.Stats()
	}
	return c.JSON(http.StatusOK, stats)
}

// InvalidateCache deletes keys matching ?pattern= from every cache, or
// from the one named by ?cache=. Without a pattern the caches are cleared.
func (h *Handler) InvalidateCache(c echo.Context) error {
	targets := h.caches
	if name := c.QueryParam("cache"); name != "" {
		mc, ok := h.caches[name]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown cache "+name)
		}
		targets = map[string]ManagedCache{name: mc}
	}

	pattern := c.QueryParam("pattern")
	removed := make(map[string]int, len(targets))
	for name, mc := range targets {
		if pattern == "" {
			removed[name] = mc.Stats().Entries
			mc.Clear()
			continue
		}
		removed[name] = mc.InvalidatePattern(pattern)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pattern": pattern,
		"removed": removed,
	})
}

func (h *Handler) PublicInfo(c echo.Context) error {
	st := h.svc.Get()
	return c.JSON(http.StatusOK, PublicInfo{
		HospitalName:           st.HospitalName,
		Timezone:               st.Timezone,
		AppointmentSlotMinutes: st.AppointmentSlotMinutes,
		Version:                h.version,
	})
}
