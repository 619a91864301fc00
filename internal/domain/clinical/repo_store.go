package clinical

import (
	"context"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/recordstore"
)

type storeRepo struct {
	store *recordstore.Store
}

func NewStoreRepository(store *recordstore.Store) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) ListVisits(_ context.Context, patientID string) ([]model.Visit, error) {
	var out []model.Visit
	err := r.store.View(func(d *recordstore.Document) error {
		out = d.VisitsFor(patientID)
		return nil
	})
	return out, err
}

func (r *storeRepo) ListPrescriptions(_ context.Context, patientID string) ([]model.Prescription, error) {
	var out []model.Prescription
	err := r.store.View(func(d *recordstore.Document) error {
		out = d.PrescriptionsFor(patientID)
		return nil
	})
	return out, err
}

func (r *storeRepo) Records(_ context.Context, patientID string) (*Records, error) {
	var out *Records
	err := r.store.View(func(d *recordstore.Document) error {
		p := d.Patient(patientID)
		if p == nil {
			return apperr.NotFound("patient not found")
		}
		out = &Records{
			Patient:       *p,
			Visits:        d.VisitsFor(patientID),
			Prescriptions: d.PrescriptionsFor(patientID),
		}
		return nil
	})
	return out, err
}

func (r *storeRepo) CreateVisit(ctx context.Context, v *model.Visit) error {
	return r.store.Update(ctx, func(d *recordstore.Document) error {
		if d.Patient(v.PatientID) == nil {
			return apperr.NotFound("patient not found")
		}
		d.Visits = append(d.Visits, *v)
		return nil
	})
}

func (r *storeRepo) CreatePrescription(ctx context.Context, rx *model.Prescription) error {
	return r.store.Update(ctx, func(d *recordstore.Document) error {
		if d.Patient(rx.PatientID) == nil {
			return apperr.NotFound("patient not found")
		}
		if rx.VisitID != "" {
			v := d.Visit(rx.VisitID)
			if v == nil || v.PatientID != rx.PatientID {
				return apperr.NotFound("visit not found")
			}
		}
		stored := *rx
		stored.Items = model.CloneItems(rx.Items)
		d.Prescriptions = append(d.Prescriptions, stored)
		return nil
	})
}
