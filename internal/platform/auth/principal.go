// Package auth resolves the request principal from a signed bearer token and
// decides what that principal may do.
package auth

import (
	"context"
	"time"

	"github.com/histomed/histomed/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller. Role and PatientID always come from
// the stored user, never from the token alone.
type Principal struct {
	UserID    string
	Role      model.Role
	PatientID string
	// Anonymous marks the staff principal granted in open mode.
	Anonymous bool
	TokenID   string
	ExpiresAt time.Time
}

func (p *Principal) IsDerm() bool { return p != nil && p.Role == model.RoleDerm }

// AnonymousStaff is the principal used by open mode for requests without a
// usable credential.
func AnonymousStaff() *Principal {
	return &Principal{UserID: "anonymous", Role: model.RoleDerm, Anonymous: true}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns nil when the request carries no principal.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// UserIDFromContext returns the principal's user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.UserID
	}
	return ""
}
