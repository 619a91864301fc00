// Package identity handles staff and patient logins, the current-user
// lookup and logout.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
)

const errInvalidCredentials = "invalid credentials"

type Service struct {
	repo        Repository
	tokens      *auth.TokenManager
	revocations *auth.TokenRevocationStore
}

func NewService(repo Repository, tokens *auth.TokenManager, revocations *auth.TokenRevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revocations: revocations}
}

// Login authenticates email and password against users of role. Every
// mismatch yields the same generic error.
func (s *Service) Login(ctx context.Context, role model.Role, email, password string) (*LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Authentication(errInvalidCredentials)
	}

	u, err := s.repo.UserByEmail(ctx, email, role)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Authentication(errInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.VerifyPassword(u.Password, password) {
		return nil, apperr.Authentication(errInvalidCredentials)
	}
	if role == model.RolePatient && u.PatientID == "" {
		return nil, apperr.Conflict("account is not linked to a patient")
	}

	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: u.Public()}, nil
}

// UserByID satisfies auth.UserLookup.
func (s *Service) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.repo.UserByID(ctx, id)
}

// Me returns the principal's user. The open-mode anonymous principal has no
// stored user and gets a synthetic one.
func (s *Service) Me(ctx context.Context, p *auth.Principal) (model.PublicUser, error) {
	if p == nil {
		return model.PublicUser{}, apperr.Authentication("unauthorized")
	}
	if p.Anonymous {
		return model.PublicUser{ID: p.UserID, Role: p.Role, Name: "Demo"}, nil
	}
	u, err := s.repo.UserByID(ctx, p.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return model.PublicUser{}, apperr.Authentication("invalid token")
		}
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// Logout revokes the presented token until it expires.
func (s *Service) Logout(_ context.Context, p *auth.Principal) error {
	if p == nil {
		return apperr.Authentication("unauthorized")
	}
	if p.TokenID != "" && s.revocations != nil {
		s.revocations.Revoke(p.TokenID, p.ExpiresAt)
	}
	return nil
}
