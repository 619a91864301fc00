// Package clinical records visits and prescriptions and reconciles them into
// a patient history.
package clinical

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/events"
)

type Service struct {
	repo      Repository
	events    events.Sink
	tolerance time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithEvents(sink events.Sink) Option {
	return func(s *Service) { s.events = sink }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTolerance(d time.Duration) Option {
	return func(s *Service) { s.tolerance = d }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, events: events.Discard, tolerance: DefaultTolerance, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateVisit(ctx context.Context, req CreateVisitRequest) (*model.Visit, error) {
	if req.PatientID == "" {
		return nil, apperr.Validation("patientId is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperr.Validation("reason is required")
	}
	createdAt := s.now().UTC()
	if req.Date != "" {
		t, err := ParseVisitDate(req.Date)
		if err != nil {
			return nil, err
		}
		createdAt = t
	}

	v := &model.Visit{
		ID:              uuid.NewString(),
		PatientID:       req.PatientID,
		Reason:          req.Reason,
		Diagnosis:       req.Diagnosis,
		Notes:           req.Notes,
		Recommendations: req.Recommendations,
		CreatedAt:       createdAt,
	}
	if err := s.repo.CreateVisit(ctx, v); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.New(events.VisitCreated, v.PatientID, v.ID, v))
	return v, nil
}

func (s *Service) CreatePrescription(ctx context.Context, req CreatePrescriptionRequest) (*model.Prescription, error) {
	if req.PatientID == "" {
		return nil, apperr.Validation("patientId is required")
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation("items array required")
	}

	rx := &model.Prescription{
		ID:        uuid.NewString(),
		PatientID: req.PatientID,
		VisitID:   req.VisitID,
		Items:     req.Items,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreatePrescription(ctx, rx); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.New(events.PrescriptionCreated, rx.PatientID, rx.ID, rx))
	return rx, nil
}

func (s *Service) ListVisits(ctx context.Context, patientID string) ([]model.Visit, error) {
	return s.repo.ListVisits(ctx, patientID)
}

func (s *Service) ListPrescriptions(ctx context.Context, patientID string) ([]model.Prescription, error) {
	return s.repo.ListPrescriptions(ctx, patientID)
}

// History returns the reconciled history and the patient's name.
func (s *Service) History(ctx context.Context, patientID string, r DayRange) (*History, string, error) {
	rec, err := s.repo.Records(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	return BuildHistory(rec, r, s.tolerance), rec.Patient.Name, nil
}
