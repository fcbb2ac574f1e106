package report

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/cache"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	view := auth.RequirePermission(auth.PermViewReports)

	api.GET("/dashboard/stats", h.DashboardStats, view)

	g := api.Group("/reports", view)
	g.GET("", h.ListReports)
	g.GET("/:kind", h.GetReport)
}

func (h *Handler) DashboardStats(c echo.Context) error {
	stats, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reports": Definitions,
		"total":   len(Definitions),
	})
}

func (h *Handler) GetReport(c echo.Context) error {
	r, err := h.svc.Generate(c.Request().Context(), c.Param("kind"), cache.ParamsFromQuery(c.QueryParams()))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}
