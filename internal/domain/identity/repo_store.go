package identity

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

func (r *storeRepo) UserByEmail(_ context.Context, email string, role model.Role) (*model.User, error) {
	var out *model.User
	err := r.store.View(func(d *recordstore.Document) error {
		u := d.UserByEmail(email, role)
		if u == nil {
			return apperr.NotFound("user not found")
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}

func (r *storeRepo) UserByID(_ context.Context, id string) (*model.User, error) {
	var out *model.User
	err := r.store.View(func(d *recordstore.Document) error {
		u := d.User(id)
		if u == nil {
			return apperr.NotFound("user %s not found", id)
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}
