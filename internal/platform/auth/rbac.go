package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
)

// Action names an operation gated by the Policy.
type Action string

const (
	ActionPatientsList        Action = "patients.list"
	ActionPatientsCreate      Action = "patients.create"
	ActionPatientsUpdate      Action = "patients.update"
	ActionPatientsDelete      Action = "patients.delete"
	ActionPatientsRead        Action = "patients.read"
	ActionVisitsCreate        Action = "visits.create"
	ActionPrescriptionsCreate Action = "prescriptions.create"
)

// staffActions require the DERM role.
var staffActions = map[Action]bool{
	ActionPatientsList:        true,
	ActionPatientsCreate:      true,
	ActionPatientsUpdate:      true,
	ActionPatientsDelete:      true,
	ActionVisitsCreate:        true,
	ActionPrescriptionsCreate: true,
}

// Policy is the single access decision for every gated route.
type Policy struct {
	Mode Mode
}

// Authorize decides whether p may perform action on patientID. Ownership is
// decided before any lookup of the patient.
func (pol Policy) Authorize(p *Principal, action Action, patientID string) error {
	if p == nil {
		return apperr.Authentication("unauthorized")
	}
	switch {
	case staffActions[action]:
		if pol.Mode == ModeOpen || p.IsDerm() {
			return nil
		}
		return apperr.Authorization("forbidden")
	case action == ActionPatientsRead:
		if p.IsDerm() {
			return nil
		}
		if p.Role == model.RolePatient && p.PatientID != "" && p.PatientID == patientID {
			return nil
		}
		return apperr.Authorization("forbidden")
	default:
		return apperr.Authorization("unknown action " + string(action))
	}
}

// Require returns middleware enforcing action. The target patient id is read
// from the named path parameter; pass "" for actions without one.
func (pol Policy) Require(action Action, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var patientID string
			if param != "" {
				patientID = c.Param(param)
			}
			if err := pol.Authorize(PrincipalFromContext(c.Request().Context()), action, patientID); err != nil {
				return apperr.ToHTTP(err)
			}
			return next(c)
		}
	}
}

// RequirePrincipal rejects requests without any principal.
func RequirePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFromContext(c.Request().Context()) == nil {
				return apperr.ToHTTP(apperr.Authentication("unauthorized"))
			}
			return next(c)
		}
	}
}
