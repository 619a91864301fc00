package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
)

func TestPolicy_Authorize(t *testing.T) {
	derm := &Principal{UserID: "u_derm1", Role: model.RoleDerm}
	patient := &Principal{UserID: "u_pat1", Role: model.RolePatient, PatientID: "p101"}
	unlinked := &Principal{UserID: "u_x", Role: model.RolePatient}

	tests := []struct {
		name      string
		mode      Mode
		p         *Principal
		action    Action
		patientID string
		want      apperr.Kind
		allowed   bool
	}{
		{"no principal", ModeToken, nil, ActionPatientsList, "", apperr.KindAuthentication, false},
		{"no principal read", ModeToken, nil, ActionPatientsRead, "p101", apperr.KindAuthentication, false},
		{"derm lists", ModeToken, derm, ActionPatientsList, "", 0, true},
		{"derm creates visit", ModeToken, derm, ActionVisitsCreate, "", 0, true},
		{"patient cannot list", ModeToken, patient, ActionPatientsList, "", apperr.KindAuthorization, false},
		{"patient cannot create rx", ModeToken, patient, ActionPrescriptionsCreate, "", apperr.KindAuthorization, false},
		{"patient cannot delete", ModeToken, patient, ActionPatientsDelete, "p101", apperr.KindAuthorization, false},
		{"derm reads any", ModeToken, derm, ActionPatientsRead, "p999", 0, true},
		{"patient reads own", ModeToken, patient, ActionPatientsRead, "p101", 0, true},
		{"patient reads other", ModeToken, patient, ActionPatientsRead, "p102", apperr.KindAuthorization, false},
		{"patient reads nonexistent", ModeToken, patient, ActionPatientsRead, "does-not-exist", apperr.KindAuthorization, false},
		{"unlinked patient", ModeToken, unlinked, ActionPatientsRead, "", apperr.KindAuthorization, false},
		{"open anonymous creates", ModeOpen, AnonymousStaff(), ActionPatientsCreate, "", 0, true},
		{"open patient role gate off", ModeOpen, patient, ActionPatientsList, "", 0, true},
		{"open patient still scoped", ModeOpen, patient, ActionPatientsRead, "p102", apperr.KindAuthorization, false},
		{"unknown action", ModeToken, derm, Action("patients.export"), "", apperr.KindAuthorization, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Policy{Mode: tt.mode}.Authorize(tt.p, tt.action, tt.patientID)
			if tt.allowed {
				if err != nil {
					t.Fatalf("expected allowed, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected denial")
			}
			if apperr.KindOf(err) != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, apperr.KindOf(err))
			}
		})
	}
}

func TestPolicy_RequireReadsPathParam(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/p102", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{UserID: "u_pat1", Role: model.RolePatient, PatientID: "p101"}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("p102")

	h := Policy{Mode: ModeToken}.Require(ActionPatientsRead, "id")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}

	c.SetParamValues("p101")
	if err := h(c); err != nil {
		t.Errorf("expected own record to pass, got %v", err)
	}
}

func TestRequirePrincipal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequirePrincipal()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthSkipper_Basic(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{"/health": true, "/health/db": true, "/api/patients": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath(path)
		if got := AuthSkipper(c); got != want {
			t.Errorf("AuthSkipper(%q) = %v, want %v", path, got, want)
		}
	}
}
