package referral

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	view := auth.RequirePermission(auth.PermViewReferrals)
	manage := auth.RequirePermission(auth.PermManageReferrals)

	g := api.Group("/referrals")
	g.GET("", h.ListReferrals, view)
	g.GET("/:id", h.GetReferral, view)
	g.POST("", h.CreateReferral, manage)
	g.PUT("/:id", h.UpdateReferral, manage)
	g.PATCH("/:id/status", h.UpdateStatus, manage)
	g.DELETE("/:id", h.DeleteReferral, manage)
}

// CreateReferral records the caller as the referring clinician unless the
// body names one.
func (h *Handler) CreateReferral(c echo.Context) error {
	var ref Referral
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ref.ID = uuid.Nil
	if ref.ReferredBy == nil {
		if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
			ref.ReferredBy = &id
		}
	}
	if err := h.svc.CreateReferral(c.Request().Context(), &ref); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) GetReferral(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ref, err := h.svc.GetReferral(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) ListReferrals(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		Status:       c.QueryParam("status"),
		Priority:     c.QueryParam("priority"),
		ToDepartment: c.QueryParam("to_department"),
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_id must be a uuid")
		}
		filter.PatientID = &id
	}
	page, err := h.svc.ListReferrals(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page.Items, page.Total, p.Limit, p.Offset))
}

func (h *Handler) UpdateReferral(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ref Referral
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ref.ID = id
	if err := h.svc.UpdateReferral(c.Request().Context(), &ref); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd StatusUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ref, err := h.svc.UpdateStatus(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) DeleteReferral(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReferral(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
