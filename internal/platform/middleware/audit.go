package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/platform/auth"
)

// auditPatientKey carries the patient a handler acted on when the route has
// no :id parameter.
const auditPatientKey = "audit_patient_id"

// SetAuditPatientID names the patient a request touched, for routes such as
// POST /visits whose patient is only known from the body.
func SetAuditPatientID(c echo.Context, patientID string) {
	c.Set(auditPatientKey, patientID)
}

type auditEntry struct {
	RequestID  string
	UserID     string
	Role       string
	Anonymous  bool
	PatientID  string
	Resource   string
	Action     string
	Path       string
	RemoteIP   string
	StatusCode int
}

// auditedResources are the first path segment under /api that hold records.
var auditedResources = map[string]bool{
	"patients":      true,
	"visits":        true,
	"prescriptions": true,
}

// Audit logs every access to patient records after the handler has run, so
// the entry carries the final status. Non-record routes pass through.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := auditResource(req.URL.Path)
			if resource == "" {
				return next(c)
			}

			err := next(c)

			entry := auditEntry{
				RequestID:  GetRequestID(c),
				Resource:   resource,
				Action:     auditAction(req.Method),
				Path:       req.URL.Path,
				RemoteIP:   c.RealIP(),
				StatusCode: c.Response().Status,
			}
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					entry.StatusCode = he.Code
				}
			}
			if p := auth.PrincipalFromContext(req.Context()); p != nil {
				entry.UserID = p.UserID
				entry.Role = string(p.Role)
				entry.Anonymous = p.Anonymous
			}
			if id, ok := c.Get(auditPatientKey).(string); ok && id != "" {
				entry.PatientID = id
			} else if resource == "patients" {
				entry.PatientID = c.Param("id")
			}

			logger.Info().
				Str("type", "record_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Bool("anonymous", entry.Anonymous).
				Str("patient_id", entry.PatientID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.StatusCode).
				Msg("record access")

			return err
		}
	}
}

// auditResource returns "patients", "visits" or "prescriptions" for record
// routes under /api, or "".
func auditResource(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(rest, "/")
	if !auditedResources[first] {
		return ""
	}
	return first
}

func auditAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
