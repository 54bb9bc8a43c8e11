package jobs

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
)

// Handler exposes job state and manual triggering over HTTP.
type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/jobs", h.ListJobs, auth.RequireRole(auth.RoleAdmin, auth.RoleSecretary))
	g.POST("/jobs/:name/run", h.RunJob, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) ListJobs(c echo.Context) error {
	statuses := h.runner.Statuses()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return httpapi.OK(c, http.StatusOK, "", statuses)
}

func (h *Handler) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.runner.RunNow(c.Request().Context(), name); err != nil {
		return httpapi.Validation("job %q failed: %v", name, err)
	}
	return httpapi.OK(c, http.StatusOK, "job triggered", nil)
}
