package patient

import (
	"context"

	"github.com/histomed/histomed/internal/model"
)

// Repository persists patients together with their portal accounts.
type Repository interface {
	List(ctx context.Context, q string) ([]model.Patient, error)
	GetByID(ctx context.Context, id string) (*model.Patient, error)
	// CreateWithAccount inserts p and u in one update. u.Email is set to the
	// first candidate from nextEmail not already used by any user.
	CreateWithAccount(ctx context.Context, p *model.Patient, u *model.User, nextEmail func(attempt int) string) error
	// Update applies fn to the stored patient and returns the result.
	Update(ctx context.Context, id string, fn func(p *model.Patient) error) (*model.Patient, error)
	// Delete removes the patient and, unconditionally, every visit,
	// prescription and user linked to id.
	Delete(ctx context.Context, id string) (bool, error)
}
