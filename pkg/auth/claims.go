package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Phone         string
	PhoneVerified bool
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID `json:"user_id"`
	Phone         string    `json:"phone"`
	PhoneVerified bool      `json:"phone_verified"`
	jwt.RegisteredClaims
}
