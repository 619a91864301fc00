package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login-derm", h.LoginDerm)
	g.POST("/login-patient", h.LoginPatient)

	authed := g.Group("", auth.RequirePrincipal())
	authed.GET("/me", h.Me)
	authed.POST("/logout", h.Logout)
}

func (h *Handler) LoginDerm(c echo.Context) error {
	return h.login(c, model.RoleDerm)
}

func (h *Handler) LoginPatient(c echo.Context) error {
	return h.login(c, model.RolePatient)
}

func (h *Handler) login(c echo.Context, role model.Role) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.svc.Login(c.Request().Context(), role, req.Email, req.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Me(ctx, auth.PrincipalFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Logout(ctx, auth.PrincipalFromContext(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
