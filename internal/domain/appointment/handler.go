package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	staff := g.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSecretary))
	staff.GET("", h.List)
	staff.POST("", h.Create)
	staff.GET("/availability", h.Availability)
	staff.GET("/check", h.Check)
	staff.GET("/:id", h.Get)
	staff.PUT("/:id", h.Update)
	staff.POST("/:id/confirm", h.transition(StatusConfirmed))
	staff.POST("/:id/complete", h.transition(StatusCompleted))
	staff.POST("/:id/no-show", h.transition(StatusNoShow))
	staff.POST("/:id/cancel", h.transition(StatusCancelled))
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, httpapi.Validation("invalid %s", name)
	}
	return id, nil
}

// actorID resolves the authenticated user for the audit columns.
func actorID(c echo.Context) *uuid.UUID {
	raw := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) Create(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return httpapi.Validation("invalid request body")
	}
	a.CreatedBy = actorID(c)
	a.UpdatedBy = a.CreatedBy
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusCreated, "appointment scheduled", a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return httpapi.Validation("invalid request body")
	}
	a.ID = id
	a.UpdatedBy = actorID(c)
	if err := h.svc.Update(c.Request().Context(), &a); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "appointment updated", a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"professionalId", "patientId", "status", "from", "to"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	items, total, err := h.svc.Search(c.Request().Context(), params, pg)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", pagination.NewResponse(items, total, pg))
}

// transition builds a handler that moves the appointment to a fixed target
// status, so confirm/complete/no-show/cancel share one code path.
func (h *Handler) transition(to string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		a, err := h.svc.Transition(c.Request().Context(), id, to, actorID(c))
		if err != nil {
			return err
		}
		return httpapi.OK(c, http.StatusOK, "appointment updated", a)
	}
}

func (h *Handler) Availability(c echo.Context) error {
	professionalID, err := uuid.Parse(c.QueryParam("professionalId"))
	if err != nil {
		return httpapi.Validation("professionalId is required")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return httpapi.Validation("date must be formatted YYYY-MM-DD")
	}

	var treatmentTypeID *uuid.UUID
	if v := c.QueryParam("treatmentTypeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return httpapi.Validation("invalid treatmentTypeId")
		}
		treatmentTypeID = &id
	}

	slots, err := h.svc.Availability(c.Request().Context(), professionalID, date, treatmentTypeID)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", slots)
}

func (h *Handler) Check(c echo.Context) error {
	professionalID, err := uuid.Parse(c.QueryParam("professionalId"))
	if err != nil {
		return httpapi.Validation("professionalId is required")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return httpapi.Validation("start must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return httpapi.Validation("end must be an RFC3339 timestamp")
	}

	var excludeID *uuid.UUID
	if v := c.QueryParam("excludeAppointmentId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return httpapi.Validation("invalid excludeAppointmentId")
		}
		excludeID = &id
	}

	available, err := h.svc.CheckAvailability(c.Request().Context(), professionalID, start, end, excludeID)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", map[string]bool{"available": available})
}
