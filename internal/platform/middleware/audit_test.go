package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/auth"
)

func TestAuditResource(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/api/patients", "patients"},
		{"/api/patients/p101/history.csv", "patients"},
		{"/api/visits", "visits"},
		{"/api/prescriptions", "prescriptions"},
		{"/api/auth/login-derm", ""},
		{"/api/medchat", ""},
		{"/health", ""},
		{"/patients", ""},
	}
	for _, tt := range tests {
		if got := auditResource(tt.path); got != tt.want {
			t.Errorf("auditResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAuditAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := auditAction(method); got != want {
			t.Errorf("auditAction(%s) = %s, want %s", method, got, want)
		}
	}
}

func auditLine(t *testing.T, logs *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", logs.String(), err)
	}
	return line
}

func TestAudit_RecordsPatientAccess(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.Use(RequestID(), Audit(zerolog.New(&logs)))
	e.GET("/api/patients/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/patients/p101", nil)
	p := &auth.Principal{UserID: "u_pat1", Role: model.RolePatient, PatientID: "p101"}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	e.ServeHTTP(httptest.NewRecorder(), req)

	line := auditLine(t, &logs)
	if line["type"] != "record_audit" || line["patient_id"] != "p101" {
		t.Errorf("unexpected log line %v", line)
	}
	if line["user_id"] != "u_pat1" || line["role"] != "PATIENT" {
		t.Errorf("unexpected principal fields %v", line)
	}
	if line["action"] != "read" || line["resource"] != "patients" || line["status"] != float64(http.StatusOK) {
		t.Errorf("unexpected entry %v", line)
	}
	if line["request_id"] == "" {
		t.Error("expected request id")
	}
}

func TestAudit_CapturesErrorStatus(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.Use(Audit(zerolog.New(&logs)))
	e.DELETE("/api/patients/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/patients/p9", nil))

	line := auditLine(t, &logs)
	if line["status"] != float64(http.StatusForbidden) || line["action"] != "delete" || line["patient_id"] != "p9" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestAudit_PatientFromHandler(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.Use(Audit(zerolog.New(&logs)))
	e.POST("/api/visits", func(c echo.Context) error {
		SetAuditPatientID(c, "p101")
		return c.NoContent(http.StatusCreated)
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/visits", nil))

	line := auditLine(t, &logs)
	if line["resource"] != "visits" || line["action"] != "create" || line["patient_id"] != "p101" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestAudit_SkipsOtherRoutes(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.Use(Audit(zerolog.New(&logs)))
	e.POST("/api/medchat", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/medchat", nil))

	if logs.Len() != 0 {
		t.Errorf("expected no audit log, got %s", logs.String())
	}
}
