package appointment

import (
	"net/http"
	"time"

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
	view := auth.RequirePermission(auth.PermViewAppointments)
	manage := auth.RequirePermission(auth.PermManageAppointments)

	g := api.Group("/appointments")
	g.GET("", h.ListAppointments, view)
	g.GET("/:id", h.GetAppointment, view)
	g.POST("", h.CreateAppointment, manage)
	g.PUT("/:id", h.UpdateAppointment, manage)
	g.PATCH("/:id/status", h.UpdateStatus, manage)
	g.DELETE("/:id", h.DeleteAppointment, manage)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a.ID = uuid.Nil
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	p := pagination.FromContext(c)
	filter, err := filterFromQuery(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	page, err := h.svc.ListAppointments(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page.Items, page.Total, p.Limit, p.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a.ID = id
	if err := h.svc.UpdateAppointment(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req StatusUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// filterFromQuery reads patient_id, doctor_id, status and either date
// (YYYY-MM-DD, UTC day) or from/to (RFC 3339).
func filterFromQuery(c echo.Context) (ListFilter, error) {
	var f ListFilter
	f.Status = c.QueryParam("status")

	for name, dst := range map[string]**uuid.UUID{"patient_id": &f.PatientID, "doctor_id": &f.DoctorID} {
		if v := c.QueryParam(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return f, apperr.Validation("%s must be a uuid", name)
			}
			*dst = &id
		}
	}

	if v := c.QueryParam("date"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.Validation("date must be YYYY-MM-DD")
		}
		from, to := DayBounds(day)
		f.From, f.To = &from, &to
		return f, nil
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.QueryParam(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return f, apperr.Validation("%s must be an RFC 3339 timestamp", name)
			}
			*dst = &t
		}
	}
	return f, nil
}
