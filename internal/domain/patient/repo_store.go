package patient

import (
	"context"
	"strings"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/recordstore"
)

const maxEmailAttempts = 10000

type storeRepo struct {
	store *recordstore.Store
}

func NewStoreRepository(store *recordstore.Store) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) List(_ context.Context, q string) ([]model.Patient, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []model.Patient{}
	err := r.store.View(func(d *recordstore.Document) error {
		for _, p := range d.Patients {
			if q == "" ||
				strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.DPI), q) ||
				strings.Contains(strings.ToLower(p.Phone), q) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *storeRepo) GetByID(_ context.Context, id string) (*model.Patient, error) {
	var out *model.Patient
	err := r.store.View(func(d *recordstore.Document) error {
		p := d.Patient(id)
		if p == nil {
			return apperr.NotFound("patient not found")
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *storeRepo) CreateWithAccount(ctx context.Context, p *model.Patient, u *model.User, nextEmail func(int) string) error {
	return r.store.Update(ctx, func(d *recordstore.Document) error {
		email := ""
		for attempt := 1; attempt <= maxEmailAttempts; attempt++ {
			candidate := nextEmail(attempt)
			if d.UserByEmail(candidate, "") == nil {
				email = candidate
				break
			}
		}
		if email == "" {
			return apperr.Conflict("could not allocate a unique portal email")
		}
		u.Email = email
		d.Patients = append(d.Patients, *p)
		d.Users = append(d.Users, *u)
		return nil
	})
}

func (r *storeRepo) Update(ctx context.Context, id string, fn func(*model.Patient) error) (*model.Patient, error) {
	var out model.Patient
	err := r.store.Update(ctx, func(d *recordstore.Document) error {
		p := d.Patient(id)
		if p == nil {
			return apperr.NotFound("patient not found")
		}
		if err := fn(p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *storeRepo) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	removed := false
	err := r.store.Update(ctx, func(d *recordstore.Document) error {
		patients := d.Patients[:0]
		for _, p := range d.Patients {
			if p.ID == id {
				removed = true
				continue
			}
			patients = append(patients, p)
		}
		d.Patients = patients

		visits := d.Visits[:0]
		for _, v := range d.Visits {
			if v.PatientID != id {
				visits = append(visits, v)
			}
		}
		d.Visits = visits

		rxs := d.Prescriptions[:0]
		for _, rx := range d.Prescriptions {
			if rx.PatientID != id {
				rxs = append(rxs, rx)
			}
		}
		d.Prescriptions = rxs

		users := d.Users[:0]
		for _, u := range d.Users {
			if u.PatientID != id {
				users = append(users, u)
			}
		}
		d.Users = users
		return nil
	})
	return removed, err
}
