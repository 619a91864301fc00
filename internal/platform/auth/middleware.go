package auth

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/model"
)

// Mode selects how strictly the policy is enforced.
type Mode string

const (
	// ModeToken enforces the role and ownership gates.
	ModeToken Mode = "token"
	// ModeOpen grants an anonymous staff principal to requests without a
	// usable credential and disables the role gate.
	ModeOpen Mode = "open"
)

// UserLookup finds the stored user behind a token subject. It returns an
// error when the user no longer exists.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

type MiddlewareConfig struct {
	Tokens      *TokenManager
	Users       UserLookup
	Revocations *TokenRevocationStore
	Mode        Mode
	Skipper     func(echo.Context) bool
	Logger      zerolog.Logger
}

// Authenticate attaches a Principal to the request context when the request
// carries a valid token. It never rejects a request; the policy does that.
func Authenticate(cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			p := resolve(c, cfg)
			if p == nil && cfg.Mode == ModeOpen {
				p = AnonymousStaff()
			}
			if p != nil {
				c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			}
			return next(c)
		}
	}
}

func resolve(c echo.Context, cfg MiddlewareConfig) *Principal {
	tokenStr := TokenFromRequest(c)
	if tokenStr == "" {
		return nil
	}
	claims, err := cfg.Tokens.Parse(tokenStr)
	if err != nil {
		cfg.Logger.Debug().Err(err).Str("path", c.Path()).Msg("rejected bearer token")
		return nil
	}
	if cfg.Revocations != nil && cfg.Revocations.IsRevoked(claims.ID) {
		return nil
	}
	u, err := cfg.Users.UserByID(c.Request().Context(), claims.Subject)
	if err != nil || u == nil {
		return nil
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &Principal{
		UserID:    u.ID,
		Role:      u.Role,
		PatientID: u.PatientID,
		TokenID:   claims.ID,
		ExpiresAt: exp,
	}
}

// TokenFromRequest reads the bearer token from the Authorization header or,
// failing that, the token query parameter used by WebSocket clients and
// download links.
func TokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return c.QueryParam("token")
}
