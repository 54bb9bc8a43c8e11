package identity

import (
	"net/http"

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

// RegisterAuthRoutes registers /api/auth routes. Login is the only route in
// the API served without a token.
func (h *Handler) RegisterAuthRoutes(public, authed *echo.Group) {
	public.POST("/login", h.Login)
	authed.GET("/me", h.Me)
	authed.POST("/change-password", h.ChangePassword)
}

// RegisterUserRoutes registers /api/users routes. User management is
// admin-only.
func (h *Handler) RegisterUserRoutes(g *echo.Group) {
	admin := g.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.ListUsers)
	admin.POST("", h.CreateUser)
	admin.GET("/:id", h.GetUser)
	admin.PUT("/:id", h.UpdateUser)
	admin.POST("/:id/activate", h.ActivateUser)
	admin.POST("/:id/deactivate", h.DeactivateUser)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Validation("invalid request body")
	}
	token, user, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "login successful", loginResponse{Token: token, User: user})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return httpapi.Unauthorized("invalid token subject")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Validation("invalid request body")
	}
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return httpapi.Unauthorized("invalid token subject")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "password updated", nil)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Validation("invalid request body")
	}
	u := &User{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.svc.CreateUser(c.Request().Context(), u, req.Password); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusCreated, "user created", u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httpapi.Validation("invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httpapi.Validation("invalid id")
	}
	var u User
	if err := c.Bind(&u); err != nil {
		return httpapi.Validation("invalid request body")
	}
	u.ID = id
	if err := h.svc.UpdateUser(c.Request().Context(), &u); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "user updated", u)
}

func (h *Handler) ActivateUser(c echo.Context) error   { return h.setActive(c, true) }
func (h *Handler) DeactivateUser(c echo.Context) error { return h.setActive(c, false) }

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httpapi.Validation("invalid id")
	}
	if err := h.svc.SetUserActive(c.Request().Context(), id, active); err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "user updated", nil)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpapi.OK(c, http.StatusOK, "", pagination.NewResponse(items, total, pg))
}
