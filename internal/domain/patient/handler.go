package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
	"github.com/histomed/histomed/internal/platform/middleware"
	"github.com/histomed/histomed/pkg/pagination"
)

type Handler struct {
	svc    *Service
	policy auth.Policy
}

func NewHandler(svc *Service, policy auth.Policy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients, h.policy.Require(auth.ActionPatientsList, ""))
	api.POST("/patients", h.CreatePatient, h.policy.Require(auth.ActionPatientsCreate, ""))
	api.GET("/patients/:id", h.GetPatient, h.policy.Require(auth.ActionPatientsRead, "id"))
	api.PUT("/patients/:id", h.UpdatePatient, h.policy.Require(auth.ActionPatientsUpdate, "id"))
	api.DELETE("/patients/:id", h.DeletePatient, h.policy.Require(auth.ActionPatientsDelete, "id"))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CreatePatient(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	middleware.SetAuditPatientID(c, res.ID)
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	list, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	pagination.SetTotal(c, len(list))
	return c.JSON(http.StatusOK, pagination.Page(list, pagination.FromContext(c)))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	res, err := h.svc.DeletePatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
