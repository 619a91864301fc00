package clinical

import (
	"time"

	"github.com/histomed/histomed/internal/model"
)

type CreateVisitRequest struct {
	PatientID       string `json:"patientId"`
	Reason          string `json:"reason"`
	Diagnosis       string `json:"diagnosis"`
	Notes           string `json:"notes"`
	Recommendations string `json:"recommendations"`
	// Date overrides createdAt. See ParseVisitDate for accepted layouts.
	Date string `json:"date"`
}

type CreatePrescriptionRequest struct {
	PatientID string                   `json:"patientId"`
	VisitID   string                   `json:"visitId"`
	Items     []model.PrescriptionItem `json:"items"`
}

// Records is everything recorded for one patient.
type Records struct {
	Patient       model.Patient
	Visits        []model.Visit
	Prescriptions []model.Prescription
}

// DayRange is an inclusive range of UTC calendar days. A zero bound is open.
type DayRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls on a day within r.
func (r DayRange) Contains(t time.Time) bool {
	t = t.UTC()
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

type HistoryEntry struct {
	Visit         model.Visit          `json:"visit"`
	Prescriptions []model.Prescription `json:"prescriptions"`
}

// History is the reconciled view of a patient's record. Visits are newest
// first; orphans are never filtered by the day range.
type History struct {
	PatientID string               `json:"patientId"`
	From      string               `json:"from,omitempty"`
	To        string               `json:"to,omitempty"`
	Visits    []HistoryEntry       `json:"visits"`
	Orphans   []model.Prescription `json:"orphans"`
}
