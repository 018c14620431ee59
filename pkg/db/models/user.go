package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. Accounts are keyed by phone
// number; the phone must be verified via OTP before login is allowed.
type User struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Phone           string     `gorm:"column:phone;not null;uniqueIndex"`
	FirstName       string     `gorm:"column:first_name;not null"`
	LastName        string     `gorm:"column:last_name;not null"`
	Email           *string    `gorm:"column:email"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	PhoneVerifiedAt *time.Time `gorm:"column:phone_verified_at"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PhoneVerified reports whether the account completed OTP verification.
func (u *User) PhoneVerified() bool {
	return u.PhoneVerifiedAt != nil
}
