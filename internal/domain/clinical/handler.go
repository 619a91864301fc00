package clinical

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
	"github.com/histomed/histomed/internal/platform/middleware"
)

type Handler struct {
	svc    *Service
	policy auth.Policy
}

func NewHandler(svc *Service, policy auth.Policy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := h.policy.Require(auth.ActionPatientsRead, "id")
	api.GET("/patients/:id/visits", h.ListVisits, read)
	api.GET("/patients/:id/prescriptions", h.ListPrescriptions, read)
	api.GET("/patients/:id/history", h.GetHistory, read)
	api.GET("/patients/:id/history.csv", h.ExportHistory, read)

	api.POST("/visits", h.CreateVisit, h.policy.Require(auth.ActionVisitsCreate, ""))
	api.POST("/prescriptions", h.CreatePrescription, h.policy.Require(auth.ActionPrescriptionsCreate, ""))
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var req CreateVisitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	middleware.SetAuditPatientID(c, req.PatientID)
	v, err := h.svc.CreateVisit(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req CreatePrescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	middleware.SetAuditPatientID(c, req.PatientID)
	rx, err := h.svc.CreatePrescription(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) ListVisits(c echo.Context) error {
	list, err := h.svc.ListVisits(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	list, err := h.svc.ListPrescriptions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetHistory(c echo.Context) error {
	r, err := ParseDayRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	hist, _, err := h.svc.History(c.Request().Context(), c.Param("id"), r)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *Handler) ExportHistory(c echo.Context) error {
	r, err := ParseDayRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	hist, name, err := h.svc.History(c.Request().Context(), c.Param("id"), r)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, hist); err != nil {
		return apperr.ToHTTP(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+historyFilename(name)+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
