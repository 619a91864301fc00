// Package patient manages patients and their provisioned portal logins.
package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
	"github.com/histomed/histomed/internal/platform/events"
)

// DefaultPortalDomain is used when no portal email domain is configured.
const DefaultPortalDomain = "paciente.histomed.gt"

type Config struct {
	PortalDomain string
	// HashPassword stores provisioned passwords. Defaults to bcrypt.
	HashPassword func(string) (string, error)
	Events       events.Sink
	Now          func() time.Time
}

type Service struct {
	repo   Repository
	domain string
	hash   func(string) (string, error)
	events events.Sink
	now    func() time.Time
}

func NewService(repo Repository, cfg Config) *Service {
	s := &Service{repo: repo, domain: cfg.PortalDomain, hash: cfg.HashPassword, events: cfg.Events, now: cfg.Now}
	if s.domain == "" {
		s.domain = DefaultPortalDomain
	}
	if s.hash == nil {
		s.hash = auth.DefaultHasher.Hash
	}
	if s.events == nil {
		s.events = events.Discard
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreatePatient stores the patient and its PATIENT login in one update and
// returns the temporary password. It is never retrievable again.
func (s *Service) CreatePatient(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	password, err := auth.GenerateTempPassword(auth.TempPasswordLength)
	if err != nil {
		return nil, err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &model.Patient{
		ID:        uuid.NewString(),
		Name:      name,
		DPI:       req.DPI,
		Phone:     req.Phone,
		CreatedAt: now,
	}
	u := &model.User{
		ID:        uuid.NewString(),
		Role:      model.RolePatient,
		Name:      name,
		Password:  hashed,
		PatientID: p.ID,
		CreatedAt: now,
	}
	if err := s.repo.CreateWithAccount(ctx, p, u, EmailCandidates(name, req.DPI, s.domain)); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.New(events.PatientCreated, p.ID, p.ID, p))
	return &CreateResult{Patient: *p, Login: PortalLogin{Email: u.Email, Password: password}}, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPatients filters by a case-insensitive substring of name, dpi or
// phone. An empty query lists everything in insertion order.
func (s *Service) ListPatients(ctx context.Context, q string) ([]model.Patient, error) {
	return s.repo.List(ctx, q)
}

// UpdatePatient changes only the fields present in req.
func (s *Service) UpdatePatient(ctx context.Context, id string, req UpdateRequest) (*model.Patient, error) {
	var name string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be blank")
		}
	}

	updated, err := s.repo.Update(ctx, id, func(p *model.Patient) error {
		if req.Name != nil {
			p.Name = name
		}
		if req.DPI != nil {
			p.DPI = *req.DPI
		}
		if req.Phone != nil {
			p.Phone = *req.Phone
		}
		now := s.now().UTC()
		p.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.New(events.PatientUpdated, updated.ID, updated.ID, updated))
	return updated, nil
}

// DeletePatient cascades to visits, prescriptions and linked users. Deleting
// an unknown id is not an error.
func (s *Service) DeletePatient(ctx context.Context, id string) (*DeleteResult, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed {
		s.events.Emit(ctx, events.New(events.PatientDeleted, id, id, DeleteResult{Removed: true}))
	}
	return &DeleteResult{Removed: removed}, nil
}
