package patient

import (
	"github.com/histomed/histomed/internal/model"
)

type CreateRequest struct {
	Name  string `json:"name"`
	DPI   string `json:"dpi"`
	Phone string `json:"phone"`
}

// UpdateRequest carries only the fields present in the request body.
type UpdateRequest struct {
	Name  *string `json:"name"`
	DPI   *string `json:"dpi"`
	Phone *string `json:"phone"`
}

// PortalLogin is the provisioned credential, returned once at creation.
type PortalLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateResult struct {
	model.Patient
	Login PortalLogin `json:"login"`
}

type DeleteResult struct {
	Removed bool `json:"removed"`
}
