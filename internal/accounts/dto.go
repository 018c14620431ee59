package accounts

import (
	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/google/uuid"
)

// UserDTO is the account payload returned to clients.
type UserDTO struct {
	ID            uuid.UUID `json:"id"`
	Phone         string    `json:"phone"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Email         *string   `json:"email,omitempty"`
	PhoneVerified bool      `json:"phone_verified"`
}

// TokenPair carries the freshly minted access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is the successful login payload.
type LoginResult struct {
	User   UserDTO   `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

func toUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:            user.ID,
		Phone:         user.Phone,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		PhoneVerified: user.PhoneVerified(),
	}
}
