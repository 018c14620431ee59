package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarcheh/bazarcheh-backend/pkg/enums"
)

// OtpCode stores a short-lived verification code delivered out of band.
type OtpCode struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Code       string           `gorm:"column:code;not null"`
	Purpose    enums.OtpPurpose `gorm:"column:purpose;not null;default:'verify_phone'"`
	ExpiresAt  time.Time        `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time       `gorm:"column:consumed_at"`
	Attempts   int              `gorm:"column:attempts;not null;default:0"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (o *OtpCode) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Usable reports whether the code can still be redeemed at the given instant.
func (o *OtpCode) Usable(now time.Time) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt)
}
