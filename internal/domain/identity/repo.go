package identity

import (
	"context"

	"github.com/histomed/histomed/internal/model"
)

type Repository interface {
	// UserByEmail matches case-insensitively within role.
	UserByEmail(ctx context.Context, email string, role model.Role) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
}
