package identity

import (
	"github.com/histomed/histomed/internal/model"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}
