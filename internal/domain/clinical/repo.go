package clinical

import (
	"context"

	"github.com/histomed/histomed/internal/model"
)

// Repository appends visits and prescriptions. Create calls verify that the
// patient (and visit) exist in the same update that appends the record.
type Repository interface {
	ListVisits(ctx context.Context, patientID string) ([]model.Visit, error)
	ListPrescriptions(ctx context.Context, patientID string) ([]model.Prescription, error)
	Records(ctx context.Context, patientID string) (*Records, error)
	CreateVisit(ctx context.Context, v *model.Visit) error
	CreatePrescription(ctx context.Context, rx *model.Prescription) error
}
