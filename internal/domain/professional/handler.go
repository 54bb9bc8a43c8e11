package professional

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
	staff.GET("/:id", h.Get)
	staff.PUT("/:id", h.Update)
	staff.POST("/:id/activate", h.Activate)
	staff.POST("/:id/deactivate", h.Deactivate)

	staff.GET("/:id/working-hours", h.ListWorkingHours)
	staff.PUT("/:id/working-hours", h.ReplaceWorkingHours)

	staff.GET("/:id/schedule-blocks", h.ListBlocks)
	staff.POST("/:id/schedule-blocks", h.CreateBlock)
	staff.DELETE("/:id/schedule-blocks/:blockId", h.DeleteBlock)

	staff.GET("/:id/treatment-types", h.ListTreatmentTypes)
	staff.POST("/:id/treatment-types", h.CreateTreatmentType)
	staff.PUT("/:id/treatment-types/:treatmentId", h.UpdateTreatmentType)
	staff.POST("/:id/treatment-types/:treatmentId/deactivate", h.DeactivateTreatmentType)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, httpapi.Validation("invalid %s", name)
	}
	return id, nil
}

// -- Professional --

func (h *Handler) Create(c echo.Context) error {
	var p Professional
	if err := c.Bind(&p); err != nil {
		return httpapi.Validation("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusCreated, "professional created", p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var p Professional
	if err := c.Bind(&p); err != nil {
		return httpapi.Validation("invalid request body")
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "professional updated", p)
}

func (h *Handler) Activate(c echo.Context) error   { return h.setActive(c, true) }
func (h *Handler) Deactivate(c echo.Context) error { return h.setActive(c, false) }

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.SetActive(c.Request().Context(), id, active); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "professional updated", nil)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"name", "specialty", "active"} {
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

// -- Working hours --

type workingHourRequest struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`   // HH:MM
	Active  *bool  `json:"active"`
}

func (h *Handler) ReplaceWorkingHours(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var reqs []workingHourRequest
	if err := c.Bind(&reqs); err != nil {
		return httpapi.Validation("invalid request body")
	}

	hours := make([]*WorkingHour, 0, len(reqs))
	for _, req := range reqs {
		start, err := ParseClock(req.Start)
		if err != nil {
			return httpapi.Validation("%v", err)
		}
		end, err := ParseClock(req.End)
		if err != nil {
			return httpapi.Validation("%v", err)
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		hours = append(hours, &WorkingHour{
			Weekday:     req.Weekday,
			StartMinute: start,
			EndMinute:   end,
			Active:      active,
		})
	}

	if err := h.svc.ReplaceWorkingHours(c.Request().Context(), id, hours); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "working hours updated", hours)
}

func (h *Handler) ListWorkingHours(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	hours, err := h.svc.ListWorkingHours(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", hours)
}

// -- Schedule blocks --

func (h *Handler) CreateBlock(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var b ScheduleBlock
	if err := c.Bind(&b); err != nil {
		return httpapi.Validation("invalid request body")
	}
	b.ProfessionalID = id
	if err := h.svc.CreateBlock(c.Request().Context(), &b); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusCreated, "schedule block created", b)
}

func (h *Handler) DeleteBlock(c echo.Context) error {
	blockID, err := parseID(c, "blockId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBlock(c.Request().Context(), blockID); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "schedule block removed", nil)
}

func (h *Handler) ListBlocks(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(0, 3, 0)
	if v := c.QueryParam("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	blocks, err := h.svc.ListBlocks(c.Request().Context(), id, from, to)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", blocks)
}

// -- Treatment types --

func (h *Handler) CreateTreatmentType(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var t TreatmentType
	if err := c.Bind(&t); err != nil {
		return httpapi.Validation("invalid request body")
	}
	t.ProfessionalID = id
	if err := h.svc.CreateTreatmentType(c.Request().Context(), &t); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusCreated, "treatment type created", t)
}

func (h *Handler) UpdateTreatmentType(c echo.Context) error {
	treatmentID, err := parseID(c, "treatmentId")
	if err != nil {
		return err
	}
	var t TreatmentType
	if err := c.Bind(&t); err != nil {
		return httpapi.Validation("invalid request body")
	}
	t.ID = treatmentID
	if err := h.svc.UpdateTreatmentType(c.Request().Context(), &t); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "treatment type updated", t)
}

func (h *Handler) DeactivateTreatmentType(c echo.Context) error {
	treatmentID, err := parseID(c, "treatmentId")
	if err != nil {
		return err
	}
	if err := h.svc.SetTreatmentTypeActive(c.Request().Context(), treatmentID, false); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "treatment type updated", nil)
}

func (h *Handler) ListTreatmentTypes(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListTreatmentTypes(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", items)
}
