package clinicconfig

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
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
	staff.GET("/:key", h.Get)

	admin := g.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/:key", h.Set)
}

func (h *Handler) List(c echo.Context) error {
	settings, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", settings)
}

func (h *Handler) Get(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", st)
}

type setRequest struct {
	Value string `json:"value"`
}

func (h *Handler) Set(c echo.Context) error {
	var req setRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Validation("invalid request body")
	}

	var updatedBy *uuid.UUID
	if raw := auth.UserIDFromContext(c.Request().Context()); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			updatedBy = &id
		}
	}

	st, err := h.svc.Set(c.Request().Context(), c.Param("key"), req.Value, updatedBy)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "setting updated", st)
}
